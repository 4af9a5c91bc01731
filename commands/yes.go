package commands

import (
	"bytes"
	"errors"
	"strings"

	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
)

// Yes implements the UNIX yes command. It writes until the output fails or
// the job is killed.
func Yes(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "yes [STRING]...",
		Short: "Repeatedly output a line with all specified STRING(s), or 'y'.",
		// Never bail, even if args are bad.
		NeverBail: true,
	}

	return cmd.Run(virtOS, func() int {
		line := "y"
		if args := virtOS.Args()[1:]; len(args) > 0 {
			line = strings.Join(args, " ")
		}

		// Batch lines to keep the number of writes down.
		chunk := bytes.Repeat([]byte(line+"\n"), 1+4096/(len(line)+1))
		ctx := virtOS.Context()
		for {
			select {
			case <-ctx.Done():
				return job.ExitCancelled
			default:
			}

			_, err := virtOS.Stdout().Write(chunk)
			switch {
			case errors.Is(err, vos.ErrBrokenPipe):
				return 0
			case err != nil:
				return 1
			}
		}
	})
}

var _ vos.ProcessFunc = Yes

func init() {
	mustAddBinCmd("yes", Yes)
}

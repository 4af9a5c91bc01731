package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/josephlewis42/vsh/core/vos"
)

// Head implements the POSIX head command.
//
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/head.html
func Head(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "head [-n NUMBER] [FILE]...",
		Short: "Copy the first lines of each input file to standard output.",
	}

	lines := cmd.Flags().IntLong("lines", 'n', 10, "number of lines to copy")

	return cmd.Run(virtOS, func() int {
		if *lines < 0 {
			cmd.LogProgramError(virtOS, fmt.Errorf("invalid number of lines: %d", *lines))
			return 1
		}

		files := cmd.Flags().Args()
		w := virtOS.Stdout()
		first := true
		return cmd.RunEachFileOrStdin(virtOS, files, func(name string, fd io.Reader) error {
			if len(files) > 1 {
				if !first {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "==> %s <==\n", name)
			}
			first = false

			reader := bufio.NewReader(fd)
			for i := 0; i < *lines; i++ {
				line, err := reader.ReadString('\n')
				fmt.Fprint(w, line)
				switch {
				case err == io.EOF:
					return nil
				case err != nil:
					return err
				}
			}
			return nil
		})
	})
}

var _ vos.ProcessFunc = Head

func init() {
	mustAddBinCmd("head", Head)
}

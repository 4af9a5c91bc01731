package commands

import (
	"fmt"

	"github.com/josephlewis42/vsh/core/vos"
)

// Whoami prints the session's user name from USER, or LOGNAME if USER is
// unset.
func Whoami(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "whoami",
		Short: "Print the current user.",
	}

	return cmd.Run(virtOS, func() int {
		if args := cmd.Flags().Args(); len(args) > 0 {
			fmt.Fprintf(virtOS.Stderr(), "whoami: extra operand %q\n", args[0])
			return 1
		}

		for _, name := range []string{"USER", "LOGNAME"} {
			if user := virtOS.Getenv(name); user != "" {
				fmt.Fprintln(virtOS.Stdout(), user)
				return 0
			}
		}
		fmt.Fprintln(virtOS.Stderr(), "whoami: cannot find name for user")
		return 1
	})
}

var _ vos.ProcessFunc = Whoami

func init() {
	mustAddBinCmd("whoami", Whoami)
}

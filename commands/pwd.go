package commands

import (
	"fmt"

	"github.com/josephlewis42/vsh/core/vos"
)

// Pwd implements the UNIX pwd command.
func Pwd(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "pwd",
		Short: "Print the name of the current working directory.",
	}

	return cmd.RunE(virtOS, func() error {
		pwd, err := virtOS.Getwd()
		if err != nil {
			return err
		}
		fmt.Fprintln(virtOS.Stdout(), pwd)
		return nil
	})
}

var _ vos.ProcessFunc = Pwd

func init() {
	mustAddBinCmd("pwd", Pwd)
}

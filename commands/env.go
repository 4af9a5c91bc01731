package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/josephlewis42/vsh/core/vos"
)

// Env implements the POSIX env command without running utilities.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/env.html
func Env(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "env [NAME=VALUE]...",
		Short: "Print the environment, with the given variables added.",
	}

	return cmd.Run(virtOS, func() int {
		env := vos.NewMapEnvFromEnvList(virtOS.Environ())
		for _, arg := range cmd.Flags().Args() {
			if !strings.Contains(arg, "=") {
				cmd.LogProgramError(virtOS, fmt.Errorf("%s: running utilities isn't supported", arg))
				return 127
			}
		}
		if err := vos.CopyEnv(env, cmd.Flags().Args()); err != nil {
			cmd.LogProgramError(virtOS, err)
			return 125
		}

		environ := env.Environ()
		sort.Strings(environ)
		for _, envDef := range environ {
			fmt.Fprintln(virtOS.Stdout(), envDef)
		}

		return 0
	})
}

var _ vos.ProcessFunc = Env

func init() {
	mustAddBinCmd("env", Env)
}

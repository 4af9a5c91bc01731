package commands

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/vsh/core/vos"
	"github.com/spf13/afero"
)

// Hostname implements the Linux command by the same name. The name comes
// from /etc/hostname, HOSTNAME otherwise.
func Hostname(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "hostname",
		Short: "Show the system's hostname.",
	}

	return cmd.Run(virtOS, func() int {
		host := virtOS.Getenv("HOSTNAME")
		if contents, err := afero.ReadFile(virtOS, "/etc/hostname"); err == nil {
			if name := strings.TrimSpace(string(contents)); name != "" {
				host = name
			}
		}

		if host == "" {
			fmt.Fprintln(virtOS.Stderr(), "hostname: unknown host")
			return 1
		}
		fmt.Fprintln(virtOS.Stdout(), host)
		return 0
	})
}

var _ vos.ProcessFunc = Hostname

func init() {
	mustAddBinCmd("hostname", Hostname)
}

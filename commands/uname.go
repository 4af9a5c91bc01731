package commands

import (
	"fmt"

	"github.com/josephlewis42/vsh/core/vos"
)

// Fixed system information reported by uname.
const (
	unameSysname = "vsh"
	unameRelease = "1.0.0"
	unameVersion = "#1 SMP"
	unameMachine = "x86_64"
)

// Uname implements the POSIX command by the same name. The node name is the
// HOSTNAME variable.
func Uname(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "uname [OPTION]...",
		Short: "Print system information.",
	}

	opts := cmd.Flags()
	showAll := opts.BoolLong("all", 'a', "print all information")
	showKernelName := opts.BoolLong("kernel-name", 's', "print the kernel name")
	showNodename := opts.BoolLong("nodename", 'n', "print the network node name")
	showRelease := opts.BoolLong("kernel-release", 'r', "print the kernel release")
	showVersion := opts.BoolLong("kernel-version", 'v', "print the kernel version")
	showMachine := opts.BoolLong("machine", 'm', "print the machine name")

	return cmd.Run(virtOS, func() int {
		w := virtOS.Stdout()
		anyPrinted := false
		for _, entry := range []struct {
			flag     *bool
			property string
		}{
			{showKernelName, unameSysname},
			{showNodename, virtOS.Getenv("HOSTNAME")},
			{showRelease, unameRelease},
			{showVersion, unameVersion},
			{showMachine, unameMachine},
		} {
			if *entry.flag || *showAll {
				if anyPrinted {
					fmt.Fprint(w, " ")
				}
				fmt.Fprint(w, entry.property)
				anyPrinted = true
			}
		}

		if !anyPrinted {
			fmt.Fprint(w, unameSysname)
		}

		fmt.Fprintln(w)
		return 0
	})
}

var _ vos.ProcessFunc = Uname

func init() {
	mustAddBinCmd("uname", Uname)
}

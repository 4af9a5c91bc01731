package commands

import (
	"fmt"
	"io/fs"

	"github.com/josephlewis42/vsh/core/vos"
)

// Mkdir creates directories. -m takes the same modes as chmod, symbolic
// modes start from a=rwx.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/mkdir.html
func Mkdir(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "mkdir [-pv] [-m MODE] DIRECTORY...",
		Short: "Create directories.",
	}

	opts := cmd.Flags()
	makeParents := opts.BoolLong("parents", 'p', "make parents as needed, existing directories are fine")
	verbose := opts.BoolLong("verbose", 'v', "print a line for every created directory")
	modeExpr := opts.StringLong("mode", 'm', "", "set the mode of created directories", "MODE")

	return cmd.Run(virtOS, func() int {
		directories := opts.Args()
		if len(directories) == 0 {
			fmt.Fprintln(virtOS.Stderr(), "mkdir: missing operand")
			return 1
		}

		var mode fs.FileMode = 0755
		if *modeExpr != "" {
			var err error
			if mode, err = ChmodApplyMode(*modeExpr, 0777); err != nil {
				fmt.Fprintf(virtOS.Stderr(), "mkdir: invalid mode %q: %s\n", *modeExpr, err)
				return 1
			}
		}

		code := 0
		for _, dir := range directories {
			if err := makeDir(virtOS, dir, mode, *makeParents, *modeExpr != ""); err != nil {
				fmt.Fprintf(virtOS.Stderr(), "mkdir: cannot create directory %q: %s\n", dir, errText(err))
				code = 1
				continue
			}
			if *verbose {
				fmt.Fprintf(virtOS.Stdout(), "mkdir: created directory %q\n", dir)
			}
		}
		return code
	})
}

// makeDir creates dir. An explicit mode is set afterwards so it applies
// exactly, parents keep the default.
func makeDir(virtOS vos.VOS, dir string, mode fs.FileMode, parents, explicit bool) error {
	var err error
	if parents {
		err = virtOS.MkdirAll(dir, 0755)
	} else {
		err = virtOS.Mkdir(dir, 0755)
	}
	if err != nil || !explicit {
		return err
	}
	return virtOS.Chmod(dir, mode)
}

var _ vos.ProcessFunc = Mkdir

func init() {
	mustAddBinCmd("mkdir", Mkdir)
}

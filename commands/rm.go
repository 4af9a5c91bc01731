package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/josephlewis42/vsh/core/vos"
)

// Rm implements a POSIX rm command.
func Rm(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "rm [OPTION...] FILE...",
		Short: "Remove files or directories.",
	}

	recursive := cmd.Flags().BoolLong("recursive", 'r', "remove directories and their contents recursively")
	cmd.Flags().FlagLong(recursive, "", 'R', "same as -r")
	force := cmd.Flags().BoolLong("force", 'f', "ignore missing files and arguments, never prompt")

	return cmd.Run(virtOS, func() int {
		files := cmd.Flags().Args()
		if len(files) == 0 && !*force {
			fmt.Fprintln(virtOS.Stderr(), "rm: missing operand")
			return 1
		}

		anyFailed := false
		for _, file := range files {
			stat, statErr := virtOS.Stat(file)
			remove := virtOS.Remove
			switch {
			case errors.Is(statErr, fs.ErrNotExist):
				if !*force {
					fmt.Fprintf(virtOS.Stderr(), "rm: can't remove %q: no such file or directory\n", file)
					anyFailed = true
				}
				continue
			case statErr != nil:
				fmt.Fprintf(virtOS.Stderr(), "rm: can't stat %q: %s\n", file, errText(statErr))
				anyFailed = true
				continue
			case stat.IsDir() && !*recursive:
				fmt.Fprintf(virtOS.Stderr(), "rm: can't remove %q: is a directory\n", file)
				anyFailed = true
				continue
			case stat.IsDir():
				remove = virtOS.RemoveAll
			}

			if err := remove(file); err != nil {
				fmt.Fprintf(virtOS.Stderr(), "rm: can't remove %q: %s\n", file, errText(err))
				anyFailed = true
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

var _ vos.ProcessFunc = Rm

func init() {
	mustAddBinCmd("rm", Rm)
}

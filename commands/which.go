package commands

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/josephlewis42/vsh/core/vos"
)

// Which prints where each command would be found on the search path.
func Which(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "which [-as] COMMAND...",
		Short: "Locate a command.",
	}
	all := cmd.Flags().Bool('a', "print every match on the search path")
	silent := cmd.Flags().Bool('s', "print nothing, only set the exit status")

	return cmd.Run(virtOS, func() int {
		code := 0
		for _, arg := range cmd.Flags().Args() {
			found, err := whichPaths(virtOS, arg, *all)
			switch {
			case err != nil:
				code = 1
				if !*silent {
					cmd.LogProgramError(virtOS, err)
				}
			case !*silent:
				fmt.Fprintln(virtOS.Stdout(), strings.Join(found, "\n"))
			}
		}
		return code
	})
}

// whichPaths finds name like the shell does. With all set every PATH
// directory holding it is reported, not only the first.
func whichPaths(virtOS vos.VOS, name string, all bool) ([]string, error) {
	first, err := vos.LookPath(virtOS, name)
	if err != nil || !all || strings.Contains(name, "/") {
		return []string{first}, err
	}

	found := []string{first}
	seen := map[string]bool{first: true}
	for _, dir := range filepath.SplitList(virtOS.Getenv("PATH")) {
		if !path.IsAbs(dir) {
			continue
		}
		match, err := vos.LookPath(virtOS, path.Join(dir, name))
		if err == nil && !seen[match] {
			seen[match] = true
			found = append(found, match)
		}
	}
	return found, nil
}

var _ vos.ProcessFunc = Which

func init() {
	mustAddBinCmd("which", Which)
}

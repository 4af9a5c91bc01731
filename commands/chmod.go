package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/josephlewis42/vsh/core/vos"
)

const (
	ModeMaskUser  fs.FileMode = 0700
	ModeMaskGroup fs.FileMode = 0070
	ModeMaskOther fs.FileMode = 0007
	ModeMaskAll               = ModeMaskUser | ModeMaskGroup | ModeMaskOther

	ModeRead  fs.FileMode = 0444
	ModeWrite fs.FileMode = 0222
	ModeExec  fs.FileMode = 0111

	ChmodMask = ModeMaskAll
)

func blendChmod(origValue, newValue fs.FileMode) fs.FileMode {
	return (origValue &^ ChmodMask) | (newValue & ChmodMask)
}

// ChmodApplyMode applies a mode expression to orig. The expression is an
// octal number or comma separated symbolic clauses like u+x,go-w. The setuid,
// setgid and sticky bits are ignored.
func ChmodApplyMode(mode string, orig fs.FileMode) (fs.FileMode, error) {
	// If mode is an octal integer, the value is absolute
	if octalMode, err := strconv.ParseUint(mode, 8, 32); err == nil {
		return blendChmod(orig, fs.FileMode(octalMode)), nil
	}

	for _, clause := range strings.Split(mode, ",") {
		var err error
		if orig, err = applyClause(clause, orig); err != nil {
			return orig, err
		}
	}
	return orig, nil
}

func applyClause(clause string, orig fs.FileMode) (fs.FileMode, error) {
	var who fs.FileMode
	var apply fs.FileMode
	var action func(orig, who, apply fs.FileMode) fs.FileMode

	for _, modeChar := range clause {
		switch modeChar {
		// Mask groups
		case 'a':
			who |= ModeMaskAll
		case 'u':
			who |= ModeMaskUser
		case 'g':
			who |= ModeMaskGroup
		case 'o':
			who |= ModeMaskOther
		case '+':
			action = func(orig, who, apply fs.FileMode) fs.FileMode {
				return blendChmod(orig, orig|(apply&who))
			}
		case '=':
			action = func(orig, who, apply fs.FileMode) fs.FileMode {
				return blendChmod(orig, (orig&^who)|(apply&who))
			}
		case '-':
			action = func(orig, who, apply fs.FileMode) fs.FileMode {
				return blendChmod(orig, orig&^(apply&who))
			}
		case 'r':
			apply |= ModeRead
		case 'w':
			apply |= ModeWrite
		case 'x':
			apply |= ModeExec
		case 'X':
			if orig&ModeExec != 0 || orig.IsDir() {
				apply |= ModeExec
			}
		case 's', 't':
			// Not implemented
		default:
			return orig, fmt.Errorf("unknown symbol %q", modeChar)
		}
	}

	if action == nil {
		return orig, errors.New("no action provided")
	}

	if who == 0 {
		who = ModeMaskAll
	}

	return action(orig, who, apply), nil
}

// Chmod implements a POSIX chmod command. Modes like -x look like flags, so
// arguments are taken as they are.
func Chmod(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "chmod MODE FILE...",
		Short: "Change the mode of each FILE to MODE.",
	}

	args := virtOS.Args()
	if len(args) == 2 && (args[1] == "--help" || args[1] == "-h") {
		cmd.PrintHelp(virtOS.Stdout())
		return 0
	}
	if len(args) < 3 {
		fmt.Fprintln(virtOS.Stderr(), "chmod: missing operand")
		return 1
	}

	modeExpr := args[1]
	paths := args[2:]

	var anyFailed bool
	for _, path := range paths {
		stat, err := virtOS.Stat(path)
		if err != nil {
			fmt.Fprintf(virtOS.Stderr(), "chmod: cannot access %q: %s\n", path, errText(err))
			anyFailed = true
			continue
		}

		newMode, err := ChmodApplyMode(modeExpr, stat.Mode())
		if err != nil {
			fmt.Fprintf(virtOS.Stderr(), "chmod: invalid mode %q: %s\n", modeExpr, err)
			return 1
		}

		if err := virtOS.Chmod(path, newMode); err != nil {
			fmt.Fprintf(virtOS.Stderr(), "chmod: changing permissions of %q: %s\n", path, errText(err))
			anyFailed = true
		}
	}

	if anyFailed {
		return 1
	}
	return 0
}

var _ vos.ProcessFunc = Chmod

func init() {
	mustAddBinCmd("chmod", Chmod)
}

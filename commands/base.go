// Package commands holds the programs a vsh session finds on its search
// path. Each one is a vos.ProcessFunc installed under /bin and /usr/bin.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"

	"github.com/fatih/color"
	"github.com/josephlewis42/vsh/core/vos"
	getopt "github.com/pborman/getopt/v2"
	"github.com/spf13/afero"
)

// BinDirs are the directories every command is installed in.
var BinDirs = []string{"/bin", "/usr/bin"}

// CommandEntry is a registered command.
type CommandEntry struct {
	// Name is the base name of the command.
	Name string
	// Paths holds the absolute paths the command is installed at.
	Paths []string
	Proc  vos.ProcessFunc
}

var (
	allCommands = make(map[string]*CommandEntry)
	byPath      = make(map[string]vos.ProcessFunc)
)

// mustAddBinCmd adds a command under each of BinDirs.
func mustAddBinCmd(name string, cmd vos.ProcessFunc) {
	if _, ok := allCommands[name]; ok {
		panic(fmt.Sprintf("duplicate command %q", name))
	}

	entry := &CommandEntry{Name: name, Proc: cmd}
	for _, dir := range BinDirs {
		p := path.Join(dir, name)
		entry.Paths = append(entry.Paths, p)
		byPath[p] = cmd
	}
	allCommands[name] = entry
}

// ListBuiltinCommands returns every registered command sorted by name.
func ListBuiltinCommands() []CommandEntry {
	var out []CommandEntry
	for _, entry := range allCommands {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Resolver maps an installed path to its command.
func Resolver(path string) vos.ProcessFunc {
	return byPath[path]
}

var _ vos.ProcessResolver = Resolver

// InstallBin creates an executable placeholder for each command so path
// searches find it. Existing files are left alone.
func InstallBin(fsys vos.VFS) error {
	for _, dir := range BinDirs {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	for _, entry := range ListBuiltinCommands() {
		for _, p := range entry.Paths {
			_, err := fsys.Stat(p)
			switch {
			case err == nil:
				continue
			case !errors.Is(err, fs.ErrNotExist):
				return err
			}
			if err := afero.WriteFile(fsys, p, nil, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

func BytesToHuman(bytes int64) string {
	for _, e := range []struct {
		unit  string
		power int64
	}{
		{"P", 1e15},
		{"T", 1e12},
		{"G", 1e9},
		{"M", 1e6},
		{"K", 1e3},
	} {
		quotient := bytes / e.power
		switch {
		case quotient == 0:
			continue
		case quotient > 10:
			return fmt.Sprintf("%d%s", quotient, e.unit)
		default:
			return fmt.Sprintf("%0.1f%s", float64(bytes)/float64(e.power), e.unit)
		}
	}

	return fmt.Sprintf("%d", bytes)
}

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool
	// NeverBail skips interacting with stdout/stderr on failure and
	// always runs the callback.
	NeverBail bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was successful call the callback.
func (s *SimpleCommand) Run(virtOS vos.VOS, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	err := opts.Getopt(virtOS.Args(), nil)
	if err != nil && !s.NeverBail {
		fmt.Fprintf(virtOS.Stderr(), "error: %s\n\n", err)

		s.PrintHelp(virtOS.Stdout())
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(virtOS.Stdout())
		return 0
	}

	return callback()
}

// RunE is like Run, but a returned error is reported and exits with status 1.
func (s *SimpleCommand) RunE(virtOS vos.VOS, callback func() error) int {
	return s.Run(virtOS, func() int {
		if err := callback(); err != nil {
			s.LogProgramError(virtOS, err)
			return 1
		}
		return 0
	})
}

// RunEachArg calls callback with each positional argument. Errors are
// reported and make the command exit with status 1 after every argument ran.
func (s *SimpleCommand) RunEachArg(virtOS vos.VOS, callback func(string) error) int {
	return s.Run(virtOS, func() int {
		code := 0
		for _, arg := range s.Flags().Args() {
			if err := callback(arg); err != nil {
				s.LogProgramError(virtOS, err)
				code = 1
			}
		}
		return code
	})
}

// RunEachFileOrStdin calls callback for each file, or for standard input if
// there are none. The name "-" also means standard input.
func (s *SimpleCommand) RunEachFileOrStdin(virtOS vos.VOS, files []string, callback func(name string, fd io.Reader) error) int {
	if len(files) == 0 {
		files = []string{"-"}
	}

	code := 0
	for _, name := range files {
		var err error
		if name == "-" {
			err = callback(name, virtOS.Stdin())
		} else {
			err = s.withFile(virtOS, name, callback)
		}
		if err != nil {
			s.LogProgramError(virtOS, err)
			code = 1
		}
	}
	return code
}

func (s *SimpleCommand) withFile(virtOS vos.VOS, name string, callback func(string, io.Reader) error) error {
	fd, err := virtOS.Open(name)
	if err != nil {
		return fmt.Errorf("%s: %s", name, errText(err))
	}
	defer fd.Close()

	if stat, err := fd.Stat(); err == nil && stat.IsDir() {
		return fmt.Errorf("%s: %w", name, vos.ErrIsDirectory)
	}
	return callback(name, fd)
}

// LogProgramError writes err to stderr prefixed with the program name.
func (s *SimpleCommand) LogProgramError(virtOS vos.VOS, err error) {
	fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", programName(virtOS), err)
}

// errText describes err without the operation and path of a *fs.PathError,
// which messages already name.
func errText(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}
	return err.Error()
}

func programName(virtOS vos.VOS) string {
	if args := virtOS.Args(); len(args) > 0 {
		return path.Base(args[0])
	}
	return "?"
}

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

var (
	ColorBoldBlue  = color.New(color.FgBlue, color.Bold)
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldCyan  = color.New(color.FgCyan, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

func init() {
	// Whether to color is decided per session by ColorPrinter.
	for _, c := range []*color.Color{ColorBoldBlue, ColorBoldGreen, ColorBoldCyan, ColorBoldRed} {
		c.EnableColor()
	}
}

type ColorPrinter struct {
	value  *string
	virtOS vos.VOS
}

// Init sets up the flag and virtual OS to determine the color output.
func (c *ColorPrinter) Init(flags *getopt.Set, virtOS vos.VOS) {
	c.virtOS = virtOS
	c.value = flags.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{colorAlways, colorAuto, colorNever},
		colorAuto,
		"colorize the output (always|auto|never)")
}

// ShouldColor reports whether output gets colored. In auto mode that's the
// case when the session has a terminal type.
func (c *ColorPrinter) ShouldColor() bool {
	switch *c.value {
	case colorNever:
		return false
	case colorAlways:
		return true
	default:
		term := c.virtOS.Getenv("TERM")
		return term != "" && term != "dumb"
	}
}

func (c *ColorPrinter) Sprint(color *color.Color, s string) string {
	if c.ShouldColor() {
		return color.Sprint(s)
	}
	return s
}

package interp

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/syntax"
	"github.com/josephlewis42/vsh/core/vos"
	"github.com/pborman/getopt/v2"
	"github.com/spf13/afero"
	shsyntax "mvdan.cc/sh/v3/syntax"
)

// builtins holds all registered shell builtins.
var builtins = make(map[string]Builtin)

// Builtin is a command the shell runs itself, with access to the state of
// the job running it.
type Builtin interface {
	Main(c *Call) int
}

// BuiltinFunc adapts a function to a Builtin.
type BuiltinFunc func(c *Call) int

func (f BuiltinFunc) Main(c *Call) int {
	return f(c)
}

var _ Builtin = (BuiltinFunc)(nil)

// ListBuiltins returns the names of the shell builtins in sorted order.
func ListBuiltins() []string {
	var out []string
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Call is one invocation of a builtin. State belongs to the pipeline
// worker, changes to it are handed back to the line when the pipeline ends.
type Call struct {
	r    *Runtime
	w    *job.Worker
	line *line

	State  *job.State
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Errorf prints a message prefixed with the builtin's name to stderr and
// returns 1.
func (c *Call) Errorf(format string, a ...interface{}) int {
	fmt.Fprintf(c.Stderr, "%s: %s\n", c.Args[0], fmt.Sprintf(format, a...))
	return 1
}

// parse runs opts over the arguments and adds a help flag. If ok is false
// the builtin returns code right away.
func (c *Call) parse(opts *getopt.Set, usage, short string) (args []string, code int, ok bool) {
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(c.Args, nil); err != nil {
		fmt.Fprintf(c.Stderr, "%s: %v\n", c.Args[0], err)
		fmt.Fprintf(c.Stderr, "usage: %s\n", usage)
		return nil, 2, false
	}

	if *helpOpt {
		fmt.Fprintf(c.Stdout, "usage: %s\n", usage)
		fmt.Fprintln(c.Stdout, short)
		fmt.Fprintln(c.Stdout)
		fmt.Fprintln(c.Stdout, "Options:")
		opts.PrintOptions(c.Stdout)
		return nil, 0, false
	}

	return opts.Args(), 0, true
}

// quote renders s so the shell would read it back as one word.
func quote(s string) string {
	out, err := shsyntax.Quote(s, shsyntax.LangPOSIX)
	if err != nil {
		return strconv.Quote(s)
	}
	return out
}

// Cd changes the working directory.
func Cd(c *Call) int {
	opts := getopt.New()
	args, code, ok := c.parse(opts, "cd [dir | -]", "Change the shell working directory.")
	if !ok {
		return code
	}

	var dir string
	switch len(args) {
	case 0:
		dir = c.State.Env.Getenv(EnvHome)
		if dir == "" {
			return c.Errorf("HOME not set")
		}
	case 1:
		dir = args[0]
		if dir == "-" {
			if dir = c.State.Env.Getenv(EnvOldPWD); dir == "" {
				return c.Errorf("OLDPWD not set")
			}
			fmt.Fprintln(c.Stdout, dir)
		}
	default:
		return c.Errorf("too many arguments")
	}

	target := vos.Resolve(c.State.Dir, dir)
	if err := vos.IsDir(c.r.fs, target); err != nil {
		return c.Errorf("%v", err)
	}

	c.State.Env.Setenv(EnvOldPWD, c.State.Dir)
	c.State.Env.Setenv(EnvPWD, target)
	c.State.Dir = target
	return 0
}

// Pwd prints the working directory.
func Pwd(c *Call) int {
	opts := getopt.New()
	if _, code, ok := c.parse(opts, "pwd", "Print the name of the current working directory."); !ok {
		return code
	}
	fmt.Fprintln(c.Stdout, c.State.Dir)
	return 0
}

// Alias defines or prints aliases.
func Alias(c *Call) int {
	opts := getopt.New()
	opts.Bool('p', "print all defined aliases in a reusable format")
	args, code, ok := c.parse(opts, "alias [-p] [name[=value] ...]", "Define or display aliases.")
	if !ok {
		return code
	}

	if len(args) == 0 {
		for _, name := range c.State.AliasNames() {
			fmt.Fprintf(c.Stdout, "alias %s=%s\n", name, quote(c.State.Aliases[name]))
		}
		return 0
	}

	code = 0
	for _, arg := range args {
		if name, value, found := strings.Cut(arg, "="); found && name != "" {
			c.State.Aliases[name] = value
			continue
		}

		value, found := c.State.Alias(arg)
		if !found {
			code = c.Errorf("%s: not found", arg)
			continue
		}
		fmt.Fprintf(c.Stdout, "alias %s=%s\n", arg, quote(value))
	}
	return code
}

// Unalias removes aliases.
func Unalias(c *Call) int {
	opts := getopt.New()
	all := opts.Bool('a', "remove all alias definitions")
	args, code, ok := c.parse(opts, "unalias [-a] name [name ...]", "Remove each name from the list of defined aliases.")
	if !ok {
		return code
	}

	if *all {
		c.State.Aliases = make(map[string]string)
		return 0
	}
	if len(args) == 0 {
		fmt.Fprintln(c.Stderr, "usage: unalias [-a] name [name ...]")
		return 2
	}

	for _, name := range args {
		if _, found := c.State.Aliases[name]; !found {
			code = c.Errorf("%s: not found", name)
			continue
		}
		delete(c.State.Aliases, name)
	}
	return code
}

// Export sets variables. Every variable is passed to programs, so a name
// without a value is only checked.
func Export(c *Call) int {
	opts := getopt.New()
	opts.Bool('p', "display all exported variables")
	remove := opts.Bool('n', "remove the export property from each NAME")
	args, code, ok := c.parse(opts, "export [-n] [-p] [name[=value] ...]", "Set export attribute for shell variables.")
	if !ok {
		return code
	}

	if len(args) == 0 {
		for _, name := range c.State.Env.Keys() {
			fmt.Fprintf(c.Stdout, "export %s=%s\n", name, quote(c.State.Env.Getenv(name)))
		}
		return 0
	}

	code = 0
	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, "=")
		if !syntax.IsName(name) {
			code = c.Errorf("`%s': not a valid identifier", arg)
			continue
		}

		switch {
		case *remove:
			c.State.Env.Unsetenv(name)
		case hasValue:
			c.State.Env.Setenv(name, value)
		}
	}
	return code
}

// Unset removes variables.
func Unset(c *Call) int {
	opts := getopt.New()
	opts.Bool('f', "treat NAME as a function")
	opts.Bool('v', "treat NAME as a variable")
	args, code, ok := c.parse(opts, "unset [-fv] [name ...]", "Unset values and attributes of shell variables.")
	if !ok {
		return code
	}

	for _, name := range args {
		c.State.Env.Unsetenv(name)
	}
	return 0
}

// Set prints the shell variables.
func Set(c *Call) int {
	opts := getopt.New()
	args, code, ok := c.parse(opts, "set", "Display the names and values of shell variables.")
	if !ok {
		return code
	}
	if len(args) > 0 {
		return c.Errorf("options and positional parameters aren't supported")
	}

	for _, name := range c.State.Env.Keys() {
		fmt.Fprintf(c.Stdout, "%s=%s\n", name, quote(c.State.Env.Getenv(name)))
	}
	return 0
}

// History prints or clears the session history.
func History(c *Call) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	args, code, ok := c.parse(opts, "history [-c] [n]", "Display or manipulate the history list with line numbers.")
	if !ok {
		return code
	}

	if *clear {
		c.r.history.Clear()
		return 0
	}

	entries := c.r.history.Entries()
	start := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return c.Errorf("%s: numeric argument required", args[0])
		}
		if n < len(entries) {
			start = len(entries) - n
		}
	}

	for i := start; i < len(entries); i++ {
		fmt.Fprintf(c.Stdout, "% 5d  %s\n", i+1, entries[i])
	}
	return 0
}

// backgroundJobs returns the live background jobs sorted by id.
func (r *Runtime) backgroundJobs() []*job.Worker {
	var out []*job.Worker
	for _, w := range r.registry.List() {
		if w.Background() {
			out = append(out, w)
		}
	}
	return out
}

// Jobs lists the background jobs.
func Jobs(c *Call) int {
	opts := getopt.New()
	long := opts.Bool('l', "list start times in addition to the normal information")
	if _, code, ok := c.parse(opts, "jobs [-l]", "Display status of jobs."); !ok {
		return code
	}

	for _, w := range c.r.backgroundJobs() {
		fmt.Fprintln(c.Stdout, formatJob(w, *long))
	}
	return 0
}

// formatJob renders a job table line, long lines include the start time.
func formatJob(w *job.Worker, long bool) string {
	if long {
		return fmt.Sprintf("[%d]  %-8s %s  %s &", w.ID(), w.Status(), w.Started().Format("15:04:05"), w.Name())
	}
	return fmt.Sprintf("[%d]  %-8s %s &", w.ID(), w.Status(), w.Name())
}

// jobSpec finds the job named by %N or N.
func (c *Call) jobSpec(spec string) (*job.Worker, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(spec, "%"))
	if err != nil {
		return nil, fmt.Errorf("%s: arguments must be job IDs", spec)
	}
	w, ok := c.r.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: no such job", spec)
	}
	return w, nil
}

// signalArg matches the -9 and -KILL style signal arguments of kill.
var signalArg = regexp.MustCompile(`^-([0-9]+|[A-Z][A-Z0-9]*)$`)

// Kill stops jobs. Every signal kills.
func Kill(c *Call) int {
	// Numeric and named signals aren't options getopt understands.
	args := []string{c.Args[0]}
	for _, arg := range c.Args[1:] {
		if !signalArg.MatchString(arg) {
			args = append(args, arg)
		}
	}
	c.Args = args

	opts := getopt.New()
	all := opts.Bool('a', "kill all jobs")
	opts.String('s', "", "signal to send, every signal stops the job", "sig")
	args, code, ok := c.parse(opts, "kill [-a] [-s sig | -sig] %job | id ...", "Stop jobs.")
	if !ok {
		return code
	}

	var targets []*job.Worker
	if *all {
		targets = c.r.backgroundJobs()
	} else if len(args) == 0 {
		fmt.Fprintln(c.Stderr, "usage: kill [-a] [-s sig | -sig] %job | id ...")
		return 2
	}

	for _, spec := range args {
		w, err := c.jobSpec(spec)
		if err != nil {
			code = c.Errorf("%v", err)
			continue
		}
		targets = append(targets, w)
	}

	for _, w := range targets {
		if c.isSelfOrAncestor(w) {
			// Killing waits for the target, which is waiting for us.
			w.Interrupt()
			go w.Kill()
			continue
		}
		w.Kill()
	}
	return code
}

func (c *Call) isSelfOrAncestor(target *job.Worker) bool {
	for w := c.w; w != nil; w = w.Parent() {
		if w == target {
			return true
		}
	}
	return false
}

// awaitJob joins w unless the calling job is killed first.
func (c *Call) awaitJob(w *job.Worker) (int, bool) {
	select {
	case <-w.Done():
		return w.ExitCode(), true
	case <-c.w.Context().Done():
		return job.ExitCancelled, false
	}
}

// Wait waits for jobs to finish and returns the status of the last one.
func Wait(c *Call) int {
	opts := getopt.New()
	args, code, ok := c.parse(opts, "wait [%job | id ...]", "Wait for job completion and return exit status.")
	if !ok {
		return code
	}

	var targets []*job.Worker
	if len(args) == 0 {
		targets = c.r.backgroundJobs()
	}
	for _, spec := range args {
		w, err := c.jobSpec(spec)
		if err != nil {
			return c.Errorf("%v", err)
		}
		targets = append(targets, w)
	}

	code = 0
	for _, w := range targets {
		if c.isSelfOrAncestor(w) {
			continue
		}
		var done bool
		if code, done = c.awaitJob(w); !done {
			return code
		}
	}
	return code
}

// Fg waits for a background job as if it were running in the foreground. If
// the caller is killed while waiting the job is killed too.
func Fg(c *Call) int {
	opts := getopt.New()
	args, code, ok := c.parse(opts, "fg [%job]", "Move job to the foreground.")
	if !ok {
		return code
	}

	var target *job.Worker
	switch {
	case len(args) > 1:
		return c.Errorf("too many arguments")
	case len(args) == 1:
		w, err := c.jobSpec(args[0])
		if err != nil {
			return c.Errorf("%v", err)
		}
		target = w
	default:
		jobs := c.r.backgroundJobs()
		if len(jobs) == 0 {
			return c.Errorf("current: no such job")
		}
		target = jobs[len(jobs)-1]
	}

	if c.isSelfOrAncestor(target) {
		return c.Errorf("%%%d: can't wait for itself", target.ID())
	}

	fmt.Fprintln(c.Stdout, target.Name())
	code, done := c.awaitJob(target)
	if !done {
		target.Kill()
	}
	return code
}

// Exit stops the line, at the top level it ends the session.
func Exit(c *Call) int {
	code := c.State.ReturnCode
	if len(c.Args) > 1 {
		n, err := strconv.Atoi(c.Args[1])
		if err != nil {
			c.Errorf("%s: numeric argument required", c.Args[1])
			n = 2
		}
		code = n & 0xff
	}
	c.line.exit(code)
	return code
}

// Source runs a file in the calling job, it keeps the changes the file
// makes.
func Source(c *Call) int {
	if len(c.Args) < 2 {
		fmt.Fprintf(c.Stderr, "%s: filename argument required\n", c.Args[0])
		fmt.Fprintf(c.Stderr, "usage: %s filename [arguments]\n", c.Args[0])
		return 2
	}

	name := vos.Resolve(c.State.Dir, c.Args[1])
	src, err := afero.ReadFile(c.r.fs, name)
	if err != nil {
		return c.Errorf("%s: %v", c.Args[1], pathError(err))
	}

	var args []string
	if len(c.Args) > 2 {
		args = c.Args[1:]
	}

	child, err := c.r.start(string(src), RunOptions{
		Parent:      c.w,
		Stdin:       c.Stdin,
		Stdout:      c.Stdout,
		Stderr:      c.Stderr,
		Persistence: job.Persistent,
		Args:        args,
	}, nil)
	if err != nil {
		return c.Errorf("%v", err)
	}
	return child.Join()
}

// Type describes how each name would be interpreted as a command.
func Type(c *Call) int {
	opts := getopt.New()
	kindOnly := opts.Bool('t', "print a single word: alias, builtin or file")
	args, code, ok := c.parse(opts, "type [-t] name [name ...]", "Display information about command type.")
	if !ok {
		return code
	}

	for _, name := range args {
		cmd, err := c.r.resolve(c.State, name, true)
		if err != nil {
			code = c.Errorf("%s: not found", name)
			continue
		}

		if *kindOnly {
			kind := cmd.Kind.String()
			if cmd.Kind == KindProgram || cmd.Kind == KindScript {
				kind = "file"
			}
			fmt.Fprintln(c.Stdout, kind)
			continue
		}

		switch cmd.Kind {
		case KindAlias:
			fmt.Fprintf(c.Stdout, "%s is aliased to `%s'\n", name, cmd.Alias)
		case KindBuiltin:
			fmt.Fprintf(c.Stdout, "%s is a shell builtin\n", name)
		default:
			fmt.Fprintf(c.Stdout, "%s is %s\n", name, cmd.Path)
		}
	}
	return code
}

// Help lists the builtins or shows the usage of one.
func Help(c *Call) int {
	if len(c.Args) > 1 {
		code := 0
		for _, name := range c.Args[1:] {
			b, ok := builtins[name]
			if !ok {
				code = c.Errorf("no help topics match `%s'", name)
				continue
			}
			help := *c
			help.Args = []string{name, "--help"}
			b.Main(&help)
		}
		return code
	}

	fmt.Fprintf(c.Stdout, "%s, an embeddable shell\n", ShellName)
	fmt.Fprintln(c.Stdout, "These shell commands are defined internally. Type `help' to see this list.")
	fmt.Fprintln(c.Stdout, "Type `help name' to find out more about the function `name'.")
	fmt.Fprintln(c.Stdout)
	fmt.Fprintln(c.Stdout, strings.Join(ListBuiltins(), "\n"))
	return 0
}

func init() {
	builtins["cd"] = BuiltinFunc(Cd)
	builtins["pwd"] = BuiltinFunc(Pwd)
	builtins["alias"] = BuiltinFunc(Alias)
	builtins["unalias"] = BuiltinFunc(Unalias)
	builtins["export"] = BuiltinFunc(Export)
	builtins["unset"] = BuiltinFunc(Unset)
	builtins["set"] = BuiltinFunc(Set)
	builtins["history"] = BuiltinFunc(History)
	builtins["jobs"] = BuiltinFunc(Jobs)
	builtins["kill"] = BuiltinFunc(Kill)
	builtins["wait"] = BuiltinFunc(Wait)
	builtins["fg"] = BuiltinFunc(Fg)
	builtins["exit"] = BuiltinFunc(Exit)
	builtins["source"] = BuiltinFunc(Source)
	builtins["."] = BuiltinFunc(Source)
	builtins["type"] = BuiltinFunc(Type)
	builtins["true"] = BuiltinFunc(func(*Call) int { return 0 })
	builtins["false"] = BuiltinFunc(func(*Call) int { return 1 })
	builtins["help"] = BuiltinFunc(Help)
}

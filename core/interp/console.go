package interp

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/vsh/core/job"
	"go.uber.org/zap"
)

var (
	promptUserColor = color.New(color.FgGreen, color.Bold)
	promptDirColor  = color.New(color.FgBlue, color.Bold)
)

func init() {
	// Sessions decide about color themselves, the host process may not
	// have a terminal at all.
	promptUserColor.EnableColor()
	promptDirColor.EnableColor()
}

// ConsoleOptions configures an interactive console.
type ConsoleOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Width returns the terminal width, 80 if nil.
	Width func() int
	// IsTerminal reports whether the console is attached to a terminal,
	// which enables line editing and colors.
	IsTerminal func() bool
	// MakeRaw and ExitRaw switch the terminal in and out of raw mode
	// around line editing. They do nothing if nil, the terminal of a
	// remote session is already raw.
	MakeRaw func() error
	ExitRaw func() error
}

// Console reads lines from a terminal and runs them on a Runtime at the
// persistent level, recording history.
type Console struct {
	r      *Runtime
	rl     *readline.Instance
	opts   ConsoleOptions
	logger *zap.Logger

	mu sync.Mutex
	fg *job.Worker
}

// NewConsole creates a console for r.
func NewConsole(r *Runtime, opts ConsoleOptions) (*Console, error) {
	if opts.Stdin == nil || opts.Stdout == nil || opts.Stderr == nil {
		return nil, fmt.Errorf("console: missing standard stream")
	}
	if opts.Width == nil {
		opts.Width = func() int { return 80 }
	}
	if opts.IsTerminal == nil {
		opts.IsTerminal = func() bool { return false }
	}
	if opts.MakeRaw == nil {
		opts.MakeRaw = func() error { return nil }
	}
	if opts.ExitRaw == nil {
		opts.ExitRaw = func() error { return nil }
	}

	cfg := &readline.Config{
		Stdin:          readline.NewCancelableStdin(opts.Stdin),
		Stdout:         opts.Stdout,
		Stderr:         opts.Stderr,
		FuncGetWidth:   opts.Width,
		FuncIsTerminal: opts.IsTerminal,
		FuncMakeRaw:    opts.MakeRaw,
		FuncExitRaw:    opts.ExitRaw,
	}
	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &Console{
		r:      r,
		rl:     rl,
		opts:   opts,
		logger: r.logger,
	}, nil
}

// Run reads and runs lines until the input ends or exit is run. It returns
// the session's exit status.
func (c *Console) Run() int {
	for !c.r.Exited() {
		c.reportJobs()
		c.rl.SetPrompt(c.Prompt())
		src, err := c.rl.Readline()

		switch {
		case err == io.EOF:
			return c.r.ReturnValue()
		case err == readline.ErrInterrupt:
			// Interrupt clears the line.
			continue
		case err != nil:
			c.logger.Warn("readline failed", zap.Error(err))
			return 1
		case strings.TrimSpace(src) == "":
			continue
		}

		c.RunLine(src)
	}
	return c.r.ExitStatus()
}

// RunLine runs one line as the foreground job and waits for it.
func (c *Console) RunLine(src string) int {
	w, err := c.r.Start(src, RunOptions{
		Stdin:         c.opts.Stdin,
		Stdout:        c.opts.Stdout,
		Stderr:        c.opts.Stderr,
		Persistence:   job.Persistent,
		RecordHistory: true,
	})
	if err != nil {
		fmt.Fprintf(c.opts.Stderr, "%s: %v\n", ShellName, err)
		return 1
	}

	c.setForeground(w)
	defer c.setForeground(nil)
	return w.Join()
}

func (c *Console) setForeground(w *job.Worker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fg = w
}

// Interrupt kills the foreground job, if there is one, without waiting for
// it to stop.
func (c *Console) Interrupt() {
	c.mu.Lock()
	fg := c.fg
	c.mu.Unlock()

	if fg != nil {
		fg.Interrupt()
		go fg.Kill()
	}
}

// Close releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// reportJobs prints the background jobs that finished since the last prompt.
func (c *Console) reportJobs() {
	for _, w := range c.r.ReapBackground() {
		fmt.Fprintln(c.opts.Stderr, formatJob(w, false))
	}
}

// Prompt expands PS1 of the session.
func (c *Console) Prompt() string {
	return expandPrompt(c.r.root.Merged(), c.opts.IsTerminal())
}

// expandPrompt expands PS1. \u is the user, \h the host name, \w the
// working directory with the home directory shortened to ~ and \$ '#' for
// root and '$' for everyone else. \e and \033 are escape characters.
func expandPrompt(s *job.State, colored bool) string {
	prompt, ok := s.Env.LookupEnv(EnvPrompt)
	if !ok {
		prompt = DefaultPrompt
	}

	user := s.Env.Getenv(EnvUser)
	host := s.Env.Getenv(EnvHostname)
	dir := s.Dir
	if home := s.Env.Getenv(EnvHome); home != "" && home != "/" {
		if dir == home || strings.HasPrefix(dir, home+"/") {
			dir = "~" + strings.TrimPrefix(dir, home)
		}
	}

	if colored {
		user = promptUserColor.Sprint(user)
		host = promptUserColor.Sprint(host)
		dir = promptDirColor.Sprint(dir)
	}

	sign := "$"
	if s.Env.Getenv(EnvUser) == "root" {
		sign = "#"
	}

	return strings.NewReplacer(
		`\u`, user,
		`\h`, host,
		`\w`, dir,
		`\$`, sign,
		`\e`, "\x1b",
		`\033`, "\x1b",
	).Replace(prompt)
}

// Package host serves vsh sessions over SSH. Every session gets its own
// Runtime on a private copy-on-write view of the shared filesystem.
package host

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gliderlabs/ssh"
	"github.com/josephlewis42/vsh/core/config"
	"github.com/josephlewis42/vsh/core/interp"
	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

// EnvTerm is set to the terminal type of PTY sessions.
const EnvTerm = "TERM"

type sshContextKey struct {
	name string
}

// ContextAuthPassword holds the password the client logged in with.
var ContextAuthPassword = sshContextKey{"auth-password"}

// Host is an SSH server running vsh sessions.
type Host struct {
	cfg      *config.Configuration
	fs       vos.VFS
	resolver vos.ProcessResolver
	logger   *zap.Logger
	server   *ssh.Server

	mu       sync.Mutex
	sessions map[string]*interp.Runtime
}

// New creates a host serving sessions on fs, which is never modified.
func New(cfg *config.Configuration, fs vos.VFS, resolver vos.ProcessResolver, logger *zap.Logger) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Host{
		cfg:      cfg,
		fs:       fs,
		resolver: resolver,
		logger:   logger,
		sessions: make(map[string]*interp.Runtime),
	}

	h.server = &ssh.Server{
		Addr:             fmt.Sprintf(":%d", cfg.SSH.Port),
		Handler:          h.HandleSession,
		PublicKeyHandler: h.handlePublicKey,
		PasswordHandler:  h.handlePassword,
	}
	if keyPath := cfg.ResolvePath(cfg.SSH.HostKeyPath); keyPath != "" {
		if err := h.server.SetOption(ssh.HostKeyFile(keyPath)); err != nil {
			return nil, fmt.Errorf("host key: %w", err)
		}
	}

	return h, nil
}

// handlePublicKey logs the key and rejects it so clients fall back to
// passwords.
func (h *Host) handlePublicKey(ctx ssh.Context, key ssh.PublicKey) bool {
	h.logger.Info("public key rejected",
		zap.String("user", ctx.User()),
		zap.String("remote", ctx.RemoteAddr().String()),
		zap.String("type", key.Type()),
		zap.String("fingerprint", gossh.FingerprintSHA256(key)))
	return false
}

func (h *Host) handlePassword(ctx ssh.Context, password string) bool {
	ok := h.cfg.HasPassword(password)
	h.logger.Info("password login",
		zap.String("user", ctx.User()),
		zap.String("remote", ctx.RemoteAddr().String()),
		zap.Bool("accepted", ok))
	if ok {
		ctx.SetValue(ContextAuthPassword, password)
	}
	return ok
}

// ListenAndServe listens on the configured port and serves sessions until
// Shutdown.
func (h *Host) ListenAndServe() error {
	return h.server.ListenAndServe()
}

// Serve serves sessions on l until Shutdown.
func (h *Host) Serve(l net.Listener) error {
	return h.server.Serve(l)
}

// Addr is the address the server listens on.
func (h *Host) Addr() string {
	return h.server.Addr
}

// Shutdown kills the jobs of every live session and stops the server.
// Connections still open when ctx is done are closed.
func (h *Host) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	sessions := make([]*interp.Runtime, 0, len(h.sessions))
	for _, r := range h.sessions {
		sessions = append(sessions, r)
	}
	h.mu.Unlock()

	for _, r := range sessions {
		if err := r.Registry().KillAll(ctx); err != nil {
			h.logger.Warn("session didn't stop", zap.String("session", r.ID()), zap.Error(err))
		}
	}
	if err := h.server.Shutdown(ctx); err != nil {
		h.server.Close()
		return err
	}
	return nil
}

// Sessions returns the number of live sessions.
func (h *Host) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Host) track(r *interp.Runtime) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[r.ID()] = r
}

func (h *Host) untrack(r *interp.Runtime) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, r.ID())
}

// HandleSession runs one SSH session: the raw command if the client sent
// one, an interactive console otherwise.
func (h *Host) HandleSession(s ssh.Session) {
	logger := h.logger.With(
		zap.String("user", s.User()),
		zap.String("remote", s.RemoteAddr().String()))

	ptyInfo, winch, isPTY := s.Pty()
	var width atomic.Int32
	width.Store(int32(ptyInfo.Window.Width))
	go func() {
		for {
			select {
			case window, ok := <-winch:
				if !ok {
					return
				}
				width.Store(int32(window.Width))
			case <-s.Context().Done():
				return
			}
		}
	}()

	var out io.Writer = s
	if isPTY {
		out = &crlfWriter{w: out}
	}
	if dir := h.cfg.ResolvePath(h.cfg.SSH.RecordDir); dir != "" {
		rec, err := startRecording(dir, castHeader{
			Width:  ptyInfo.Window.Width,
			Height: ptyInfo.Window.Height,
			Title:  fmt.Sprintf("%s@%s", s.User(), h.cfg.Shell.Hostname),
			Env:    map[string]string{EnvTerm: ptyInfo.Term, "SHELL": interp.ShellName},
		})
		if err != nil {
			logger.Warn("couldn't record session", zap.Error(err))
		} else {
			logger = logger.With(zap.String("recording", rec.path))
			defer func() {
				if err := rec.Close(); err != nil {
					logger.Warn("recording failed", zap.Error(err))
				}
			}()
			out = io.MultiWriter(out, rec)
		}
	}
	out = throttle(out, h.cfg.SSH.OutputRate)

	var console atomic.Pointer[interp.Console]
	stdin := &interruptReader{r: s, onInterrupt: func() {
		if c := console.Load(); c != nil {
			c.Interrupt()
		}
	}}

	r, err := interp.New(interp.Options{
		FS:       vos.NewSessionFS(h.fs),
		Resolver: h.resolver,
		Config:   h.cfg.Shell,
		Logger:   logger,
		Stdin:    stdin,
		Stdout:   out,
		Stderr:   out,
	})
	if err != nil {
		logger.Error("couldn't start session", zap.Error(err))
		s.Exit(1)
		return
	}
	h.track(r)
	defer h.untrack(r)
	defer r.Close()

	for _, kv := range s.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			r.Setenv(name, value)
		}
	}
	if isPTY && ptyInfo.Term != "" {
		r.Setenv(EnvTerm, ptyInfo.Term)
	}

	logger.Info("session started",
		zap.String("session", r.ID()),
		zap.Bool("pty", isPTY),
		zap.String("command", s.RawCommand()))

	code := h.run(s, r, stdin, out, &console, isPTY, width.Load)
	logger.Info("session finished", zap.String("session", r.ID()), zap.Int("exit", code))
	s.Exit(code)
}

func (h *Host) run(s ssh.Session, r *interp.Runtime, stdin io.Reader, out io.Writer, console *atomic.Pointer[interp.Console], isPTY bool, width func() int32) int {
	if src := s.RawCommand(); src != "" {
		w, err := r.Run(src, interp.RunOptions{Persistence: job.Persistent})
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", interp.ShellName, err)
			return 1
		}
		return w.ExitCode()
	}

	if banner := h.cfg.SSH.Banner; banner != "" {
		fmt.Fprint(out, banner)
		if !strings.HasSuffix(banner, "\n") {
			fmt.Fprintln(out)
		}
	}

	c, err := interp.NewConsole(r, interp.ConsoleOptions{
		Stdin:      stdin,
		Stdout:     out,
		Stderr:     out,
		Width:      func() int { return int(width()) },
		IsTerminal: func() bool { return isPTY },
	})
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", interp.ShellName, err)
		return 1
	}
	defer c.Close()

	console.Store(c)
	return c.Run()
}

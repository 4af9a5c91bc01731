package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josephlewis42/vsh/core/config"
	"github.com/josephlewis42/vsh/core/vos"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func echo(v vos.VOS) int {
	fmt.Fprintln(v.Stdout(), strings.Join(v.Args()[1:], " "))
	return 0
}

// startHost serves a host with the default configuration on a random local
// port.
func startHost(t *testing.T) (*Host, string) {
	t.Helper()
	return startHostWith(t, config.Default())
}

func startHostWith(t *testing.T, cfg *config.Configuration) (*Host, string) {
	t.Helper()

	fs, err := NewFS(cfg)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/bin/echo", nil, 0755))

	h, err := New(cfg, fs, func(path string) vos.ProcessFunc {
		if path == "/bin/echo" {
			return echo
		}
		return nil
	}, nil)
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go h.Serve(l)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Shutdown(ctx)
	})
	return h, l.Addr().String()
}

func dial(addr, password string) (*gossh.Client, error) {
	return gossh.Dial("tcp", addr, &gossh.ClientConfig{
		User:            "guest",
		Auth:            []gossh.AuthMethod{gossh.Password(password)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
}

func TestHost_rawCommand(t *testing.T) {
	_, addr := startHost(t)

	client, err := dial(addr, "guest")
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	out, err := session.CombinedOutput("A=42; echo $A; pwd")
	require.NoError(t, err)
	assert.Equal(t, "42\n/home/guest\n", string(out))
}

func TestHost_exitStatus(t *testing.T) {
	_, addr := startHost(t)

	client, err := dial(addr, "guest")
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	err = session.Run("false")
	var exitErr *gossh.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitStatus())
}

func TestHost_sessionsAreIsolated(t *testing.T) {
	_, addr := startHost(t)

	client, err := dial(addr, "guest")
	require.NoError(t, err)
	defer client.Close()

	run := func(src string) (string, int) {
		session, err := client.NewSession()
		require.NoError(t, err)
		defer session.Close()

		out, err := session.CombinedOutput(src)
		var exitErr *gossh.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitStatus()
		}
		require.NoError(t, err)
		return string(out), 0
	}

	out, code := run("echo secret > /tmp/f")
	assert.Equal(t, "", out)
	assert.Equal(t, 0, code)

	out, code = run("cd /tmp; . f")
	assert.Equal(t, ".: f: file does not exist\n", out)
	assert.Equal(t, 1, code)
}

func TestHost_recordsSessions(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.SSH.RecordDir = dir
	_, addr := startHostWith(t, cfg)

	client, err := dial(addr, "guest")
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	out, err := session.CombinedOutput("echo recorded")
	require.NoError(t, err)
	assert.Equal(t, "recorded\n", string(out))

	casts, err := filepath.Glob(filepath.Join(dir, "*"+CastFileExt))
	require.NoError(t, err)
	require.Len(t, casts, 1)
	contents, err := os.ReadFile(casts[0])
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"o","recorded\n"]`)
}

func TestHost_wrongPassword(t *testing.T) {
	_, addr := startHost(t)

	_, err := dial(addr, "wrong")
	assert.Error(t, err)
}

func TestNewFS(t *testing.T) {
	cfg := config.Default()
	fs, err := NewFS(cfg)
	require.NoError(t, err)

	for _, dir := range []string{"/bin", "/tmp", cfg.Shell.Home} {
		assert.NoError(t, vos.IsDir(fs, dir), dir)
	}
	hostname, err := afero.ReadFile(fs, "/etc/hostname")
	require.NoError(t, err)
	assert.Equal(t, cfg.Shell.Hostname+"\n", string(hostname))
}

func TestNewFS_os(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Filesystem.Type = "os"
	cfg.Filesystem.Root = root

	fs, err := NewFS(cfg)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/tmp/x", []byte("x"), 0644))

	// The host directory isn't touched.
	_, err = afero.NewOsFs().Stat(root + "/tmp")
	assert.Error(t, err)
}

func TestNewFS_errors(t *testing.T) {
	cfg := config.Default()
	cfg.Filesystem.Type = "os"
	cfg.Filesystem.Root = "/does/not/exist"

	_, err := NewFS(cfg)
	assert.Error(t, err)
}

func TestNewFS_mounts(t *testing.T) {
	share := t.TempDir()
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), share+"/readme", []byte("shared"), 0644))

	cfg := config.Default()
	cfg.Filesystem.Mounts = []config.Mount{{Path: "/mnt/share", Root: share}}

	fs, err := NewFS(cfg)
	require.NoError(t, err)

	contents, err := afero.ReadFile(fs, "/mnt/share/readme")
	require.NoError(t, err)
	assert.Equal(t, "shared", string(contents))
	assert.Error(t, afero.WriteFile(fs, "/mnt/share/readme", nil, 0644), "mounts are read-only")

	// Sessions get their own writable copy.
	session := vos.NewSessionFS(fs)
	require.NoError(t, afero.WriteFile(session, "/mnt/share/readme", []byte("mine"), 0644))
	contents, err = afero.ReadFile(afero.NewOsFs(), share+"/readme")
	require.NoError(t, err)
	assert.Equal(t, "shared", string(contents))

	cfg.Filesystem.Mounts = []config.Mount{{Path: "/mnt/nope", Root: "/does/not/exist"}}
	_, err = NewFS(cfg)
	assert.Error(t, err)
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/josephlewis42/vsh/commands"
	"github.com/josephlewis42/vsh/core/host"
	"github.com/josephlewis42/vsh/core/interp"
	"github.com/josephlewis42/vsh/core/vos"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// playgroundCmd runs an interactive session on the local terminal
var playgroundCmd = &cobra.Command{
	Use:   "playground",
	Short: "Run a vsh session on this terminal without starting a server.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfigOrDefault()
		if err != nil {
			return err
		}
		// Help differentiate the virtual shell from the real one.
		cfg.Shell.Hostname = "playground"

		appLogger, err := newLogger(cfg, true)
		if err != nil {
			return err
		}
		defer appLogger.Sync()

		fs, err := host.NewFS(cfg)
		if err != nil {
			return err
		}
		if err := commands.InstallBin(fs); err != nil {
			return err
		}

		var console atomic.Pointer[interp.Console]
		interrupt := func() {
			if c := console.Load(); c != nil {
				c.Interrupt()
			}
		}

		fd := int(os.Stdin.Fd())
		isTerminal := term.IsTerminal(fd)

		var stdin io.Reader = os.Stdin
		var out io.Writer = cmd.OutOrStdout()
		if isTerminal {
			// Ctrl-C arrives as input while the terminal is raw.
			state, err := term.MakeRaw(fd)
			if err != nil {
				return err
			}
			defer term.Restore(fd, state)

			stdin = host.NewInterruptReader(os.Stdin, interrupt)
			out = host.NewCRLFWriter(out)
		} else {
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt)
			defer signal.Stop(sigs)
			go func() {
				for range sigs {
					interrupt()
				}
			}()
		}

		r, err := interp.New(interp.Options{
			FS:       vos.NewSessionFS(fs),
			Resolver: commands.Resolver,
			Config:   cfg.Shell,
			Logger:   appLogger,
			Stdin:    stdin,
			Stdout:   out,
			Stderr:   out,
		})
		if err != nil {
			return err
		}
		defer r.Close()
		if isTerminal {
			r.Setenv(host.EnvTerm, os.Getenv(host.EnvTerm))
		}

		c, err := interp.NewConsole(r, interp.ConsoleOptions{
			Stdin:  stdin,
			Stdout: out,
			Stderr: out,
			Width: func() int {
				width, _, err := term.GetSize(fd)
				if err != nil {
					return 80
				}
				return width
			},
			IsTerminal: func() bool { return isTerminal },
		})
		if err != nil {
			return err
		}
		defer c.Close()
		console.Store(c)

		exitCode := c.Run()
		fmt.Fprintf(out, "Exit code: %d\n", exitCode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playgroundCmd)
}

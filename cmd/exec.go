package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/josephlewis42/vsh/commands"
	"github.com/josephlewis42/vsh/core/host"
	"github.com/josephlewis42/vsh/core/interp"
	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
	"github.com/spf13/cobra"
)

var execLine string

// execCmd runs a line or a local script without a terminal
var execCmd = &cobra.Command{
	Use:   "exec [-c LINE | SCRIPT [ARG...]]",
	Short: "Run a line or a script from the local filesystem in a fresh session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		src := execLine
		var scriptArgs []string
		switch {
		case src != "" && len(args) > 0:
			return errors.New("-c and SCRIPT are exclusive")
		case src == "" && len(args) == 0:
			return errors.New("missing -c LINE or SCRIPT")
		case src == "":
			contents, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			src, scriptArgs = string(contents), args
		}

		cfg, err := loadConfigOrDefault()
		if err != nil {
			return err
		}
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

		r, err := interp.New(interp.Options{
			FS:       vos.NewSessionFS(fs),
			Resolver: commands.Resolver,
			Config:   cfg.Shell,
			Logger:   appLogger,
			Stdin:    cmd.InOrStdin(),
			Stdout:   cmd.OutOrStdout(),
			Stderr:   cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}

		w, err := r.Start(src, interp.RunOptions{
			Persistence: job.Persistent,
			Args:        scriptArgs,
		})
		if err != nil {
			r.Close()
			return err
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		go func() {
			for range sigs {
				w.Interrupt()
				go w.Kill()
			}
		}()

		code := w.Join()
		signal.Stop(sigs)
		close(sigs)
		r.Close()

		if code != 0 {
			cmd.SilenceErrors = true
			return &exitError{code}
		}
		return nil
	},
}

// exitError carries the exit status of the session to main.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode is the process exit status for err.
func ExitCode(err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}

func init() {
	execCmd.Flags().StringVarP(&execLine, "command", "c", "", "line to run")
	rootCmd.AddCommand(execCmd)
}

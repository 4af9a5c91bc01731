package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/josephlewis42/vsh/commands"
	"github.com/josephlewis42/vsh/core/host"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownTimeout is how long live sessions get to stop.
const shutdownTimeout = 5 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve vsh sessions over SSH on the configured port.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Stdin.Close()
		cmd.SilenceUsage = true
		log.Println("Initializing server...")

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		log.Println("Starting logger...")
		appLogger, err := newLogger(configuration, false)
		if err != nil {
			return err
		}
		defer appLogger.Sync()

		fs, err := host.NewFS(configuration)
		if err != nil {
			return err
		}
		if err := commands.InstallBin(fs); err != nil {
			return err
		}

		server, err := host.New(configuration, fs, commands.Resolver, appLogger)
		if err != nil {
			return err
		}

		go func() {
			appLogger.Info("listening", zap.String("addr", server.Addr()))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				log.Fatal(err)
			}
		}()

		sigs := make(chan os.Signal, 1)

		log.Println("- Starting interrupt handler")
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		sig := <-sigs
		log.Printf("Got signal %q, terminating...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server shutdown failed: %s", err)
		}
		log.Print("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/vsh/core/config"
	"github.com/josephlewis42/vsh/core/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadConfigOrDefault falls back to the built-in configuration if there's
// none at the config path.
func loadConfigOrDefault() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return configuration, err
}

// newLogger creates the application logger. With quiet set, nothing is
// logged unless the configuration names a log file.
func newLogger(cfg *config.Configuration, quiet bool) (*zap.Logger, error) {
	logCfg := cfg.Log
	if quiet && logCfg.Path == "" {
		return zap.NewNop(), nil
	}
	logCfg.Path = cfg.ResolvePath(logCfg.Path)
	return logger.New(logCfg)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vsh",
	Short: "Virtual shell",
	Long:  `An embeddable shell running jobs against a virtual filesystem, served over SSH.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/josephlewis42/vsh/commands"
	"github.com/josephlewis42/vsh/core/interp"
	"github.com/spf13/cobra"
)

// builtinsCmd lists the builtins and programs every session has
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the shell builtins and installed programs.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		var builtins []string

		for _, cmd := range commands.ListBuiltinCommands() {
			builtins = append(builtins, strings.Join(cmd.Paths, ", "))
		}

		for _, name := range interp.ListBuiltins() {
			builtins = append(builtins, "shell:"+name)
		}

		sort.Strings(builtins)

		for _, v := range builtins {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Jbase16/AraUltra/internal/scanner"
)

// shimCmd is the fallback invocation path for tools whose native binary is
// not installed: the registry rewrites their command to re-invoke this
// program as `araultra shim <tool> <target>`. Hidden because operators never
// call it directly.
var shimCmd = &cobra.Command{
	Use:    "shim <tool> <target>",
	Short:  "Run the built-in fallback for a missing tool",
	Hidden: true,
	Args:   cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return scanner.RunShim(cmd.Context(), os.Stdout, args[0], args[1])
	},
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool catalog and availability",
	Run: func(cmd *cobra.Command, args []string) {
		installed := container.Registry.Installed()
		for _, name := range container.Registry.Names() {
			tool, _ := container.Registry.Get(name)
			status := colorDiag("missing")
			if resolved, ok := installed[name]; ok {
				if resolved.Executable() == tool.Executable() && resolved.Cmd[0] == tool.Cmd[0] {
					status = colorLow("native")
				} else {
					status = colorMedium("shim")
				}
			}
			flag := ""
			if tool.Aggressive {
				flag = " [aggressive]"
			}
			fmt.Printf("%-12s %-8s %s%s\n", name, status, tool.Label, flag)
		}
	},
}

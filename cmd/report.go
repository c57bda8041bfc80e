package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reportTarget string
var reportPDF bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the current run's stores into a report",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := container.Reports.Snapshot(cmd.Context(), reportTarget)

		path, err := container.Reports.WriteMarkdown(data, resultsDir)
		if err != nil {
			return err
		}
		fmt.Printf("Markdown report written to %s\n", path)

		if reportPDF {
			pdfPath, err := container.Reports.WritePDF(data, resultsDir)
			if err != nil {
				return err
			}
			fmt.Printf("PDF report written to %s\n", pdfPath)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportTarget, "target", "current run", "target label for the report header")
	reportCmd.Flags().BoolVar(&reportPDF, "pdf", false, "also render a PDF report")
}

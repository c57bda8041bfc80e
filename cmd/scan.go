package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Jbase16/AraUltra/internal/scanner"
	sharederrors "github.com/Jbase16/AraUltra/internal/shared/errors"
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Run the recon tool pipeline against a target",
	Long: `Runs every installed (or explicitly selected) recon tool against the target
with bounded concurrency, streaming live output. Findings are normalized,
deduplicated, correlated into issues and killchain edges, and summarized at
the end of the run. Aggressive tools only run with --aggressive.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, args[0])
	},
}

func runScan(cmd *cobra.Command, target string) error {
	applyScanDefaults(cmd.Flags())

	for _, name := range scanConfig.Tools {
		if _, ok := container.Registry.Get(name); !ok {
			return fmt.Errorf("%w: %s", sharederrors.ErrUnknownTool, name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logs, err := container.Engine.Scan(ctx, target, scanner.Options{
		Tools:       scanConfig.Tools,
		Aggressive:  scanConfig.Aggressive,
		Concurrency: scanConfig.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("scan failed to start: %w", err)
	}

	for line := range logs {
		fmt.Println(formatLogLine(line))
	}
	if ctx.Err() != nil {
		fmt.Println(colorDiag("[scanner] Cancelled; already-launched tools finish in the background."))
	}

	printRunSummary()
	return nil
}

func printRunSummary() {
	findings := container.Engine.LastResults()
	issues := container.Issues.GetAll()
	edges := container.Killchain.GetAll()

	fmt.Println()
	fmt.Printf("Findings: %d  Issues: %d  Killchain edges: %d\n", len(findings), len(issues), len(edges))
	for _, i := range issues {
		fmt.Printf("  [%s] %s (%d finding(s))\n", formatSeverityWithColor(string(i.Severity)), i.Title, i.Evidence)
	}
	if ranked := container.Risk.Ranked(); len(ranked) > 0 {
		fmt.Println("Asset risk:")
		for _, s := range ranked {
			fmt.Printf("  %s: %.1f\n", s.Asset, s.Value)
		}
	}
}

func init() {
	scanCmd.Flags().StringSliceVarP(&scanConfig.Tools, "tools", "t", nil, "explicit tool selection (default: all installed)")
	scanCmd.Flags().BoolVar(&scanConfig.Aggressive, "aggressive", false, "opt in to intrusive tools (nuclei, masscan, brute forcers)")
	scanCmd.Flags().IntVarP(&scanConfig.Concurrency, "concurrency", "c", scanConfig.Concurrency, "maximum tools running at once")
}

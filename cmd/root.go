package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Jbase16/AraUltra/internal/application"
	"github.com/Jbase16/AraUltra/internal/shared/constants"
)

var (
	cfgFile    string
	logger     *zap.SugaredLogger
	resultsDir string
	container  *application.Container

	headless       bool
	headlessTarget string
)

var rootCmd = &cobra.Command{
	Use:   "araultra",
	Short: "Offensive recon orchestrator: runs external tools, correlates findings, maps killchains",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".araultra")
			viper.SetConfigType("yaml")
		}
		_ = viper.ReadInConfig()

		resultsDir = viper.GetString("results_dir")
		if resultsDir == "" {
			resultsDir = "./results"
		}
		if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create results directory: %s", err.Error())
		}
		if abs, err := filepath.Abs(resultsDir); err == nil {
			resultsDir = abs
		}

		// init logger
		l, _ := zap.NewProduction()
		logger = l.Sugar()

		c, err := application.NewContainer(application.Config{
			ResultsDir:     resultsDir,
			ToolsFile:      viper.GetString("tools_file"),
			LaunchRate:     viper.GetFloat64("scan.launch_rate"),
			AnalystURL:     viper.GetString("ai.url"),
			AnalystModel:   viper.GetString("ai.model"),
			OfflineAnalyst: viper.GetBool("ai.offline"),
			Logger:         logger,
		})
		if err != nil {
			return err
		}
		container = c

		logger.Infow("initialized", "results_dir", resultsDir)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !headless {
			return cmd.Help()
		}
		// Headless mode runs one scan synchronously to completion.
		if headlessTarget == "" {
			fmt.Fprintln(os.Stderr, "Error: --target is required in headless mode")
			os.Exit(1)
		}
		return runScan(cmd, headlessTarget)
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.araultra.yaml)")

	rootCmd.Flags().BoolVar(&headless, "headless", false, "run one scan without interactive commands")
	rootCmd.Flags().StringVar(&headlessTarget, "target", "", "target for headless mode")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(shimCmd)
	rootCmd.AddCommand(versionCmd)
}

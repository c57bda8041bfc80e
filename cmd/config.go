package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Jbase16/AraUltra/internal/shared/constants"
)

// ScanRuntimeConfig consolidates flag-driven settings for the scan command.
type ScanRuntimeConfig struct {
	Concurrency int
	Aggressive  bool
	Tools       []string
	Offline     bool
}

var scanConfig = ScanRuntimeConfig{
	Concurrency: constants.DefaultConcurrency,
}

// applyScanDefaults overlays config-file values onto flags the user did not
// set explicitly, so the precedence is flag > config file > builtin default.
func applyScanDefaults(flags *pflag.FlagSet) {
	if viper.IsSet("scan.concurrency") {
		applyIntDefault(flags, "concurrency", viper.GetInt("scan.concurrency"), func(v int) {
			scanConfig.Concurrency = v
		})
	}
	if viper.IsSet("scan.aggressive") {
		applyBoolDefault(flags, "aggressive", viper.GetBool("scan.aggressive"), func(v bool) {
			scanConfig.Aggressive = v
		})
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags.Changed(name) {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags.Changed(name) {
		return
	}
	setter(value)
}

/*
Copyright © 2026 The palitran authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "palitran",
	Short: "Incremental translation pipeline for the Pali canon corpus",
	Long: `palitran manages a hierarchically organised Pali text corpus through an
incremental, resumable translation pipeline: it extracts the units still
missing English or Sinhala translations, sends them one at a time to a
translation provider, validates and sanitizes what comes back, and merges
the results into the corpus tree without data loss or duplication.

Sessions checkpoint after every unit and survive quota exhaustion, provider
failures and process restarts. Use "palitran translate --help" to get started.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig loads optional defaults from .palitran.yaml (working directory
// or home) and PALITRAN_* environment variables. Flags always win.
func initConfig() {
	viper.SetConfigName(".palitran")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}

	viper.SetEnvPrefix("PALITRAN")
	viper.AutomaticEnv()

	viper.SetDefault("db", "./data/palitran.db")
	viper.SetDefault("provider", "google")
	viper.SetDefault("languages", []string{"en", "si"})
	viper.SetDefault("max_retries", 3)
	viper.SetDefault("pacing_ms", 500)
	viper.SetDefault("batch_size", 50)

	// A missing config file is fine; defaults and env cover it.
	_ = viper.ReadInConfig()
}

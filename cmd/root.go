/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

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
	"go.uber.org/zap"

	"github.com/valpere/humanizer/internal/config"
	"github.com/valpere/humanizer/internal/logger"
)

var version = "0.1.0"

var (
	cfgFile string
	cfg     *config.Config
	log     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "humanizer",
	Short: "Chunked, context-preserving document rewriter",
	Long: `A CLI application that rewrites long documents chunk by chunk with a pluggable
rewrite strategy while carrying style, character voices and recent sentences
from one chunk to the next.

Settings are read from humanizer.yaml (working directory or ~/.config/humanizer),
HUMANIZER_* environment variables and flags, in increasing precedence.

Use "humanizer rewrite --help" for rewrite options.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if err := v.BindPFlag("debug", cmd.Flags().Lookup("debug")); err != nil {
			return err
		}
		if err := v.BindPFlag("db", cmd.Flags().Lookup("db")); err != nil {
			return err
		}
		bindCommandFlags(v, cmd)

		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := logger.New(cfg.Debug)
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// flagKeys maps command flags onto config keys so flags win over file and
// environment values when they are set explicitly.
var flagKeys = map[string]string{
	"max-chunk-chars":  "pipeline.max_chunk_chars",
	"max-retries":      "pipeline.max_retries",
	"retry-delay":      "pipeline.retry_delay",
	"concurrency":      "pipeline.concurrency",
	"timeout":          "chunk_timeout",
	"ollama-url":       "ollama.url",
	"ollama-model":     "ollama.model",
	"openrouter-key":   "openrouter.api_key",
	"openrouter-model": "openrouter.model",
	"credentials":      "google.credentials",
	"source-lang":      "google.source_lang",
	"check-language":   "check_language",
}

func bindCommandFlags(v *viper.Viper, cmd *cobra.Command) {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./humanizer.yaml or ~/.config/humanizer/humanizer.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("db", config.DefaultDBPath, "Database path for jobs, checkpoints and protected terms")
}

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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DishanH/Pali-sub001/internal/corpus"
	"github.com/DishanH/Pali-sub001/internal/detector"
	"github.com/DishanH/Pali-sub001/internal/sanitize"
	"github.com/DishanH/Pali-sub001/internal/session"
	"github.com/DishanH/Pali-sub001/internal/store"
)

var (
	trCorpusDir   string
	trProvider    string
	trLangs       []string
	trCredentials string
	trAPIKey      string
	trModel       string

	trDBPath     string
	trNoCache    bool
	trForce      bool
	trMaxRetries int
	trPacingMS   int
	trBatchSize  int
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Run or resume a translation session over a corpus directory",
	Long: `Run a translation session: extract every unit in the corpus still missing
a target-language translation, send them to the provider one at a time, and
merge the validated results back into the chapter documents.

Progress is checkpointed after every unit into translate.checkpoint.json in
the corpus directory. A second invocation resumes exactly where the previous
one stopped — after a quota pause, a failure, or Ctrl-C. The checkpoint also
acts as a lock: two sessions cannot run over the same corpus directory.

Providers:
  google      Google Cloud Translation (use --credentials)
  openai      OpenAI chat completions (use --api-key)
  openrouter  OpenRouter chat completions (use --api-key)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyConfigDefaults(cmd)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tree, err := corpus.Load(trCorpusDir)
		if err != nil {
			return fmt.Errorf("loading corpus: %w", err)
		}

		required, err := parseLangs(trLangs)
		if err != nil {
			return err
		}

		provider, err := buildProvider(ctx, trProvider, trCredentials, trAPIKey, trModel)
		if err != nil {
			return err
		}
		if err := provider.IsAvailable(ctx); err != nil {
			return fmt.Errorf("provider %s unavailable: %w", provider.Name(), err)
		}

		var db *store.Store
		var memory session.Memory
		glossary := map[string]string{}
		if !trNoCache && trDBPath != "" {
			db, err = store.New(trDBPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			memory = db

			for _, lang := range required {
				terms, gErr := db.GetGlossaryTerms(ctx, string(lang))
				if gErr != nil {
					return fmt.Errorf("loading glossary: %w", gErr)
				}
				for src, tgt := range terms {
					glossary[src] = tgt
				}
			}
		}

		san := sanitize.New(detector.New(), sanitize.Options{})

		driver := session.New(tree, provider, san, memory, session.Config{
			Required:     required,
			MaxBatchSize: trBatchSize,
			MaxAttempts:  trMaxRetries,
			Pacing:       time.Duration(trPacingMS) * time.Millisecond,
			Force:        trForce,
			Glossary:     glossary,
		})

		fmt.Fprintf(os.Stderr, "Starting session over %s (provider: %s, targets: %v)\n",
			trCorpusDir, provider.Name(), required)

		report, runErr := driver.Run(ctx, trCorpusDir)

		var locked *session.SessionLockedError
		if errors.As(runErr, &locked) {
			return fmt.Errorf("corpus is locked by another session: %w", runErr)
		}
		if report == nil {
			return runErr
		}

		printReport(report)

		switch report.State {
		case session.StateComplete:
			fmt.Printf("Session complete: corpus fully translated.\n")
			return nil
		case session.StatePausedQuota:
			fmt.Fprintf(os.Stderr, "Provider quota exhausted: %v\n", runErr)
			fmt.Fprintf(os.Stderr, "Re-run the same command later to resume from the checkpoint.\n")
			return nil
		case session.StatePausedUser:
			fmt.Fprintf(os.Stderr, "Stopped by user; checkpoint saved. Re-run to resume.\n")
			return nil
		default:
			return fmt.Errorf("session paused on error: %w", runErr)
		}
	},
}

func printReport(r *session.Report) {
	fmt.Printf("Session %s finished in state %s\n", r.SessionID, r.State)
	fmt.Printf("  translated: %d (%d from memory)\n", r.Translated, r.FromCache)
	fmt.Printf("  skipped as already completed: %d\n", r.Skipped)
	fmt.Printf("  flagged for review: %d\n", len(r.Flagged))
	fmt.Printf("  merge conflicts: %d\n", len(r.Conflicts))

	for _, item := range r.Flagged {
		fmt.Fprintf(os.Stderr, "  REVIEW %s [%s]: %s\n", item.Location, item.Lang, item.Reason)
	}
	for _, c := range r.Conflicts {
		fmt.Fprintf(os.Stderr, "  CONFLICT %s\n", c)
	}
}

// applyConfigDefaults lets .palitran.yaml / PALITRAN_* values stand in for
// flags the user did not set. Explicit flags always win.
func applyConfigDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("provider") {
		trProvider = viper.GetString("provider")
	}
	if !cmd.Flags().Changed("db") {
		trDBPath = viper.GetString("db")
	}
	if !cmd.Flags().Changed("max-retries") {
		trMaxRetries = viper.GetInt("max_retries")
	}
	if !cmd.Flags().Changed("pacing-ms") {
		trPacingMS = viper.GetInt("pacing_ms")
	}
	if !cmd.Flags().Changed("batch-size") {
		trBatchSize = viper.GetInt("batch_size")
	}
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&trCorpusDir, "corpus", "C", "", "Corpus directory containing manifest.yaml (required)")
	translateCmd.Flags().StringVar(&trProvider, "provider", "google", "Translation provider (google, openai, openrouter)")
	translateCmd.Flags().StringSliceVarP(&trLangs, "lang", "t", nil, "Target language code (repeatable; default en,si)")
	translateCmd.Flags().StringVarP(&trCredentials, "credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().StringVar(&trAPIKey, "api-key", "", "API key for openai/openrouter providers")
	translateCmd.Flags().StringVar(&trModel, "model", "", "Model name for LLM providers")

	translateCmd.Flags().StringVar(&trDBPath, "db", "./data/palitran.db", "Database path for translation memory and glossary")
	translateCmd.Flags().BoolVar(&trNoCache, "no-cache", false, "Disable the translation memory cache")
	translateCmd.Flags().BoolVar(&trForce, "force", false, "Overwrite conflicting existing translations")
	translateCmd.Flags().IntVar(&trMaxRetries, "max-retries", 3, "Total attempts per provider call including the first")
	translateCmd.Flags().IntVar(&trPacingMS, "pacing-ms", 500, "Mandatory delay between provider calls, in milliseconds")
	translateCmd.Flags().IntVar(&trBatchSize, "batch-size", 50, "Units per batch for checkpoint batch indexing")

	translateCmd.MarkFlagRequired("corpus")
}

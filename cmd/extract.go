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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/DishanH/Pali-sub001/internal/batch"
	"github.com/DishanH/Pali-sub001/internal/corpus"
	"github.com/DishanH/Pali-sub001/internal/extract"
)

var (
	exCorpusDir string
	exLangs     []string
	exBatchSize int
	exExportDir string
	exVerbose   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "List or export the units still missing translations",
	Long: `Walk the corpus tree and report every unit missing a target-language
translation, deduplicated by source text. With --export, write the pending
batches as JSON exchange documents for an external translation collaborator;
fill the targetFields values in and merge them back with "palitran import".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := corpus.Load(exCorpusDir)
		if err != nil {
			return fmt.Errorf("loading corpus: %w", err)
		}

		required, err := parseLangs(exLangs)
		if err != nil {
			return err
		}

		units, err := extract.Extract(tree, required)
		if err != nil {
			return err
		}

		batches := batch.Chunk(units, exBatchSize)
		fmt.Printf("%d units pending translation in %d batches\n", len(units), len(batches))

		if exVerbose {
			for _, u := range units {
				fmt.Printf("  %s  missing=%v  uses=%d\n", u.Location(), u.Missing, u.UsageCount)
			}
		}

		if exExportDir == "" {
			return nil
		}

		if err := os.MkdirAll(exExportDir, 0755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
		for _, b := range batches {
			data, err := batch.Export(b)
			if err != nil {
				return fmt.Errorf("encoding batch %d: %w", b.Index, err)
			}
			name := filepath.Join(exExportDir, fmt.Sprintf("batch_%04d.json", b.Index))
			if err := os.WriteFile(name, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
		}
		fmt.Fprintf(os.Stderr, "Exported %d batches to %s\n", len(batches), exExportDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&exCorpusDir, "corpus", "C", "", "Corpus directory containing manifest.yaml (required)")
	extractCmd.Flags().StringSliceVarP(&exLangs, "lang", "t", nil, "Target language code (repeatable; default en,si)")
	extractCmd.Flags().IntVar(&exBatchSize, "batch-size", 50, "Units per exported batch")
	extractCmd.Flags().StringVar(&exExportDir, "export", "", "Directory to write batch exchange documents into")
	extractCmd.Flags().BoolVarP(&exVerbose, "verbose", "v", false, "List every pending unit")

	extractCmd.MarkFlagRequired("corpus")
}

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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DishanH/Pali-sub001/internal/batch"
	"github.com/DishanH/Pali-sub001/internal/corpus"
	"github.com/DishanH/Pali-sub001/internal/detector"
	"github.com/DishanH/Pali-sub001/internal/extract"
	"github.com/DishanH/Pali-sub001/internal/merge"
	"github.com/DishanH/Pali-sub001/internal/sanitize"
)

var (
	imCorpusDir string
	imFile      string
	imLangs     []string
	imForce     bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Merge a filled batch exchange document back into the corpus",
	Long: `Read a batch exchange document whose targetFields were filled in by an
external collaborator, sanitize every value, and merge the validated
translations into the corpus tree. Values failing validation are reported
and skipped; nothing is written for them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := corpus.Load(imCorpusDir)
		if err != nil {
			return fmt.Errorf("loading corpus: %w", err)
		}

		required, err := parseLangs(imLangs)
		if err != nil {
			return err
		}

		units, err := extract.Extract(tree, required)
		if err != nil {
			return err
		}
		bySource := make(map[string]*extract.Unit, len(units))
		for _, u := range units {
			bySource[u.SourceText] = u
		}

		data, err := os.ReadFile(imFile)
		if err != nil {
			return fmt.Errorf("reading exchange document: %w", err)
		}
		filled, err := batch.Import(data, units)
		if err != nil {
			return err
		}

		san := sanitize.New(detector.New(), sanitize.Options{})

		var merged, flagged, conflicts int
		for _, eu := range filled {
			unit := bySource[eu.SourceText]
			for langCode, text := range eu.TargetFields {
				if text == "" {
					continue
				}
				lang := corpus.Lang(langCode)

				clean, err := san.Sanitize(text, eu.SourceText, lang)
				if err != nil {
					if errors.Is(err, sanitize.ErrValidation) {
						fmt.Fprintf(os.Stderr, "REVIEW %s [%s]: %v\n", unit.Location(), lang, err)
						flagged++
						continue
					}
					return err
				}

				if err := merge.Merge(tree, unit, lang, clean, imForce); err != nil {
					var conflict *merge.OverwriteConflictError
					if errors.As(err, &conflict) {
						fmt.Fprintf(os.Stderr, "CONFLICT %v\n", conflict)
						conflicts++
						continue
					}
					return err
				}
				merged++
			}
		}

		if err := tree.Flush(); err != nil {
			return fmt.Errorf("persisting corpus: %w", err)
		}

		fmt.Printf("Imported %s: %d merged, %d flagged for review, %d conflicts\n",
			imFile, merged, flagged, conflicts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&imCorpusDir, "corpus", "C", "", "Corpus directory containing manifest.yaml (required)")
	importCmd.Flags().StringVarP(&imFile, "file", "f", "", "Filled batch exchange document (required)")
	importCmd.Flags().StringSliceVarP(&imLangs, "lang", "t", nil, "Target language code (repeatable; default en,si)")
	importCmd.Flags().BoolVar(&imForce, "force", false, "Overwrite conflicting existing translations")

	importCmd.MarkFlagRequired("corpus")
	importCmd.MarkFlagRequired("file")
}

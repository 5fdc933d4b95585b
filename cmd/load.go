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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DishanH/Pali-sub001/internal/corpus"
	"github.com/DishanH/Pali-sub001/internal/store"
)

var (
	ldCorpusDir string
	ldDBPath    string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load the corpus tree into the SQLite sink",
	Long: `Mirror the corpus into the relational schema (collections, books,
chapters, sections) with a full-text search index over section content.
The load is idempotent: re-running it replaces rows in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("db") {
			ldDBPath = viper.GetString("db")
		}

		tree, err := corpus.Load(ldCorpusDir)
		if err != nil {
			return fmt.Errorf("loading corpus: %w", err)
		}

		db, err := store.New(ldDBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		stats, err := db.LoadTree(context.Background(), tree)
		if err != nil {
			return fmt.Errorf("bulk load: %w", err)
		}

		fmt.Printf("Loaded %s into %s: %d books, %d chapters, %d sections\n",
			tree.Collection, ldDBPath, stats.Books, stats.Chapters, stats.Sections)
		return nil
	},
}

var (
	seQuery  string
	seDBPath string
	seLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Full-text search over loaded section content",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("db") {
			seDBPath = viper.GetString("db")
		}

		db, err := store.New(seDBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		hits, err := db.SearchSections(context.Background(), seQuery, seLimit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		for _, h := range hits {
			fmt.Printf("%s/%d\n  %s\n", h.ChapterID, h.Number, h.Source)
			if h.English != "" {
				fmt.Printf("  en: %s\n", h.English)
			}
			if h.Sinhala != "" {
				fmt.Printf("  si: %s\n", h.Sinhala)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d results\n", len(hits))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(searchCmd)

	loadCmd.Flags().StringVarP(&ldCorpusDir, "corpus", "C", "", "Corpus directory containing manifest.yaml (required)")
	loadCmd.Flags().StringVar(&ldDBPath, "db", "./data/palitran.db", "Database path")
	loadCmd.MarkFlagRequired("corpus")

	searchCmd.Flags().StringVarP(&seQuery, "query", "q", "", "FTS5 match expression (required)")
	searchCmd.Flags().StringVar(&seDBPath, "db", "./data/palitran.db", "Database path")
	searchCmd.Flags().IntVar(&seLimit, "limit", 20, "Maximum results")
	searchCmd.MarkFlagRequired("query")
}

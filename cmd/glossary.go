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
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DishanH/Pali-sub001/internal/store"
)

var (
	glDBPath string
	glLang   string
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage fixed term translations injected into LLM prompts",
	Long: `The glossary pins translations for recurring Pali terms (bhikkhu, sutta,
vagga, …) so LLM providers render them consistently across thousands of
units. Terms are stored per target language in the pipeline database.`,
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add <source-term> <target-term>",
	Short: "Add or update a glossary term",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openGlossaryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.AddGlossaryTerm(context.Background(), glLang, args[0], args[1]); err != nil {
			return fmt.Errorf("adding term: %w", err)
		}
		fmt.Printf("Added [%s] %s → %s\n", glLang, args[0], args[1])
		return nil
	},
}

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary terms",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openGlossaryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		lang := ""
		if cmd.Flags().Changed("target") {
			lang = glLang
		}
		entries, err := db.ListGlossaryTerms(context.Background(), lang)
		if err != nil {
			return fmt.Errorf("listing terms: %w", err)
		}

		for _, e := range entries {
			fmt.Printf("%d\t[%s]\t%s → %s\n", e.ID, e.TargetLang, e.SourceTerm, e.TargetTerm)
		}
		fmt.Printf("%d terms\n", len(entries))
		return nil
	},
}

var glossaryRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a glossary term by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		db, err := openGlossaryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteGlossaryTerm(context.Background(), id); err != nil {
			return fmt.Errorf("removing term: %w", err)
		}
		fmt.Printf("Removed term %d\n", id)
		return nil
	},
}

func openGlossaryStore(cmd *cobra.Command) (*store.Store, error) {
	if !cmd.Flags().Changed("db") {
		glDBPath = viper.GetString("db")
	}
	db, err := store.New(glDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func init() {
	rootCmd.AddCommand(glossaryCmd)
	glossaryCmd.AddCommand(glossaryAddCmd, glossaryListCmd, glossaryRemoveCmd)

	glossaryCmd.PersistentFlags().StringVar(&glDBPath, "db", "./data/palitran.db", "Database path")
	glossaryCmd.PersistentFlags().StringVarP(&glLang, "target", "t", "en", "Target language the term applies to")
}

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

var meDBPath string

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear the translation memory",
	Long: `The translation memory caches every validated translation by source text
and target language. Sessions consult it before calling the provider, so
recurring units (repeated headings, stock phrases) cost one provider call
across the whole corpus.`,
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openMemoryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		fmt.Printf("entries: %d (%d active, %d invalidated)\n",
			stats.TotalEntries, stats.ActiveEntries, stats.InvalidEntries)
		fmt.Printf("total cache hits: %d\n", stats.TotalUsage)
		return nil
	},
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List translation memory entries, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openMemoryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListMemory(context.Background())
		if err != nil {
			return fmt.Errorf("listing memory: %w", err)
		}

		for _, e := range entries {
			marker := ""
			if e.Invalidated {
				marker = " (invalidated)"
			}
			fmt.Printf("%d\t[%s]\tuses=%d%s\n  %s\n  %s\n", e.ID, e.TargetLang, e.UsageCount, marker, e.SourceText, e.FinalText)
		}
		fmt.Printf("%d entries\n", len(entries))
		return nil
	},
}

var memoryInvalidateCmd = &cobra.Command{
	Use:   "invalidate <id>",
	Short: "Mark one memory entry as untrustworthy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		db, err := openMemoryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InvalidateMemory(context.Background(), id); err != nil {
			return fmt.Errorf("invalidating entry: %w", err)
		}
		fmt.Printf("Invalidated entry %d\n", id)
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all translation memory entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openMemoryStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearMemory(context.Background())
		if err != nil {
			return fmt.Errorf("clearing memory: %w", err)
		}
		fmt.Printf("Removed %d entries\n", n)
		return nil
	},
}

func openMemoryStore(cmd *cobra.Command) (*store.Store, error) {
	if !cmd.Flags().Changed("db") {
		meDBPath = viper.GetString("db")
	}
	db, err := store.New(meDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryStatsCmd, memoryListCmd, memoryInvalidateCmd, memoryClearCmd)

	memoryCmd.PersistentFlags().StringVar(&meDBPath, "db", "./data/palitran.db", "Database path")
}

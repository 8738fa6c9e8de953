package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/storage-sweep/internal/config"
	"github.com/fenilsonani/storage-sweep/internal/history"
)

var (
	historyLimit   int
	historySummary bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past deletions, restores and discards",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		if historySummary {
			sums, err := store.Summarize(ctx)
			if err != nil {
				return err
			}
			header("Deletion history")
			for _, s := range sums {
				fmt.Printf("  %-10s %6d files  %10s\n", s.Action, s.Files, humanize.IBytes(uint64(s.Bytes)))
			}
			return nil
		}

		entries, err := store.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		rptr, err := newReporter()
		if err != nil {
			return err
		}
		header("Deletion history")
		return rptr.ReportHistory(entries)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath := configPath
		if cfgPath == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			cfgPath = p
		}

		fmt.Printf("Config file: %s\n", cfgPath)
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			fmt.Println("Config file does not exist. Using default configuration.")
			fmt.Println("Run 'sweep config init' to create one.")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Printf("\n%s", data)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the example configuration if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.EnsureConfigExists()
		if err != nil {
			return err
		}
		fmt.Printf("Config file: %s\n", path)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "number of entries to show, 0 for all")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "show totals per action")
	configCmd.AddCommand(configInitCmd)
}

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
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and clean up recorded rewrite jobs",
	Long:  `List, inspect, and delete rewrite jobs and their chunk checkpoints.`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.ListJobs(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No jobs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSTRATEGY\tLEVEL\tCHECKPOINTS\tUPDATED\tTEXT")
		for _, r := range records {
			snippet := []rune(r.SourceText)
			if len(snippet) > 40 {
				snippet = append(snippet[:37], []rune("...")...)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				r.ID, r.Status, r.Strategy, r.Level, r.Chunks,
				r.UpdatedAt.Format("2006-01-02 15:04"), string(snippet))
		}
		return w.Flush()
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := db.GetJob(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ID:          %s\n", r.ID)
		fmt.Printf("Status:      %s\n", r.Status)
		fmt.Printf("Strategy:    %s (level %d)\n", r.Strategy, r.Level)
		fmt.Printf("Checkpoints: %d\n", r.Chunks)
		fmt.Printf("Created:     %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:     %s\n", r.UpdatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total jobs:     %d\n", stats.TotalJobs)
		fmt.Printf("Running:        %d\n", stats.RunningJobs)
		fmt.Printf("Completed:      %d\n", stats.CompletedJobs)
		fmt.Printf("Failed:         %d\n", stats.FailedJobs)
		fmt.Printf("Cancelled:      %d\n", stats.CancelledJobs)
		fmt.Printf("Checkpoints:    %d\n", stats.Checkpoints)
		return nil
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a job and its checkpoints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteJob(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete job: %w", err)
		}
		fmt.Printf("Deleted job: %s\n", args[0])
		return nil
	},
}

var jobsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every finished job",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearJobs(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear jobs: %w", err)
		}
		fmt.Printf("Cleared %d finished jobs.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
	jobsCmd.AddCommand(jobsClearCmd)
}

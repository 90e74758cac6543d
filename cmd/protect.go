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

var protectCmd = &cobra.Command{
	Use:   "protect",
	Short: "Manage protected terms",
	Long: `Add, list, and remove protected terms.

Every occurrence of a protected term is copied into the rewrite verbatim,
which keeps names, brands and domain vocabulary intact.`,
}

var protectAddCmd = &cobra.Command{
	Use:   "add <term>...",
	Short: "Add protected terms",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		for _, term := range args {
			if err := db.AddProtectedTerm(context.Background(), term); err != nil {
				return fmt.Errorf("failed to add %q: %w", term, err)
			}
		}
		fmt.Printf("Added %d protected terms.\n", len(args))
		return nil
	},
}

var protectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List protected terms",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.ListProtectedTerms(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list protected terms: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No protected terms.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTERM\tADDED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Term, e.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var protectRemoveCmd = &cobra.Command{
	Use:   "remove <id|term>",
	Short: "Remove a protected term by ID or by value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteProtectedTerm(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to remove protected term: %w", err)
		}
		fmt.Printf("Removed protected term: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(protectCmd)

	protectCmd.AddCommand(protectAddCmd)
	protectCmd.AddCommand(protectListCmd)
	protectCmd.AddCommand(protectRemoveCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vapmail16/synonym-quest-sub000/internal/badge"
	badgerepo "github.com/vapmail16/synonym-quest-sub000/internal/badge/repo"
	"github.com/vapmail16/synonym-quest-sub000/internal/schema"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, done, err := openEnv()
			if err != nil {
				return err
			}
			defer done()
			if err := schema.Ensure(cmd.Context(), e.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func seedBadgesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-badges",
		Short: "Upsert the badge catalog",
		Long: `Upsert every badge of a YAML catalog into the badges table.

Without --file the catalog built into the binary is used.

Examples:
  quizctl seed-badges
  quizctl seed-badges --file ./badges.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var src []byte
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read catalog: %w", err)
				}
				src = b
			}
			e, done, err := openEnv()
			if err != nil {
				return err
			}
			defer done()
			badges := badgerepo.NewBadgeRepo(e.db)
			if err := badges.EnsureTable(cmd.Context()); err != nil {
				return err
			}
			n, err := badge.SeedCatalog(cmd.Context(), badges, src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d badges\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML catalog to load instead of the built-in one")
	return cmd
}

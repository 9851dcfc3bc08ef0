package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/subjects"
)

func migrateCmd(a *app) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			return a.migrate(ctx, store, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "Load the built-in KCSE subject table into an empty store")
	return cmd
}

func (a *app) migrate(ctx context.Context, store catalog.Store, seed bool) error {
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if !seed {
		a.logger.Info("catalog schema ready", "backend", a.cfg.Catalog.Backend)
		return nil
	}

	refs, err := store.SubjectReference(ctx)
	if err != nil {
		return fmt.Errorf("migrate: read subjects: %w", err)
	}
	if len(refs) > 0 {
		a.logger.Info("catalog schema ready", "backend", a.cfg.Catalog.Backend, "subjects", len(refs))
		return nil
	}
	if err := store.InsertSubjects(ctx, subjects.DefaultReference()); err != nil {
		return fmt.Errorf("migrate: seed subjects: %w", err)
	}
	a.logger.Info("catalog schema ready, subject table seeded",
		"backend", a.cfg.Catalog.Backend, "subjects", len(subjects.DefaultReference()))
	return nil
}

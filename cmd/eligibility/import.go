package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"course-eligibility/internal/catalog/htmlimport"
	"course-eligibility/internal/domain"
	"course-eligibility/internal/httpx"
)

func importCmd(a *app) *cobra.Command {
	var (
		category string
		timeout  time.Duration
		migrate  bool
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "import [url-or-file]",
		Short: "Load an HTML catalog page into the store",
		Long: `Import reads an HTML page of catalog tables (subjects, programmes or
degree cutoffs) from a URL or a local file and upserts every row.

Programme tables need --category. With no argument the configured
catalog.source_url is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := a.cfg.Catalog.SourceURL
			if len(args) == 1 {
				source = args[0]
			}
			if source == "" {
				return fmt.Errorf("import: no source given and catalog.source_url is empty")
			}

			var cat domain.Category
			if category != "" {
				c, ok := domain.ParseCategory(category)
				if !ok {
					return fmt.Errorf("import: unknown category %q", category)
				}
				cat = c
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			body, err := readSource(ctx, source)
			if err != nil {
				return err
			}
			doc, err := htmlimport.Parse(bytes.NewReader(body), cat)
			if err != nil {
				return err
			}
			if doc.Empty() {
				return fmt.Errorf("import: no catalog tables found in %s", source)
			}
			if len(doc.Programmes) > 0 && cat == "" {
				return fmt.Errorf("import: %s has programme rows; pass --category", source)
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if migrate {
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("import: migrate: %w", err)
				}
			}
			if dryRun {
				plan, err := htmlimport.Plan(ctx, store, doc)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				printPlan(cmd.OutOrStdout(), plan)
				return nil
			}
			if err := htmlimport.Load(ctx, store, doc); err != nil {
				return fmt.Errorf("import: %w", err)
			}

			a.logger.Info("catalog imported",
				"source", source,
				"category", string(cat),
				"subjects", len(doc.Subjects),
				"programmes", len(doc.Programmes),
				"cutoffs", len(doc.Cutoffs))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Category of programme tables (degree, diploma, certificate, medical, artisan)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall import timeout")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Create the schema first if missing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func readSource(ctx context.Context, source string) ([]byte, error) {
	if isURL(source) {
		client := &http.Client{Timeout: 60 * time.Second}
		b, err := httpx.Fetch(ctx, client, source, httpx.DefaultRetryConfig())
		if err != nil {
			return nil, fmt.Errorf("import: fetch %s: %w", source, err)
		}
		return b, nil
	}
	b, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return b, nil
}

func printPlan(w io.Writer, plan htmlimport.Changes) {
	if plan.Empty() {
		fmt.Fprintln(w, "no changes")
		return
	}
	for _, k := range plan.Create {
		fmt.Fprintf(w, "+ %s\n", k)
	}
	for _, k := range plan.Update {
		fmt.Fprintf(w, "~ %s\n", k)
	}
	for _, k := range plan.Stale {
		fmt.Fprintf(w, "? %s (not on page, kept)\n", k)
	}
	fmt.Fprintf(w, "%d to create, %d to update, %d stale\n", len(plan.Create), len(plan.Update), len(plan.Stale))
}

func isURL(s string) bool {
	s = strings.ToLower(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"course-eligibility/internal/domain"
	"course-eligibility/internal/eligibility"
	"course-eligibility/internal/export"
	"course-eligibility/internal/sftpclient"
)

func checkCmd(a *app) *cobra.Command {
	var (
		category   string
		outPath    string
		uploadSFTP bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check <profile.json>",
		Short: "Determine eligibility for one candidate profile",
		Long: `Check reads a candidate profile (the same JSON the HTTP API accepts) and
prints the programmes the candidate qualifies for.

With --out the list is written to a file instead: ".xml" writes XML,
anything else CSV. --sftp then uploads that file to the configured
SFTP drop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if uploadSFTP && outPath == "" {
				return fmt.Errorf("check: --sftp needs --out")
			}

			req, err := readProfile(args[0])
			if err != nil {
				return err
			}
			if category != "" {
				req.Category = domain.Category(category)
			}
			if c, ok := domain.ParseCategory(string(req.Category)); ok {
				req.Category = c
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			cat, closeCache := a.readCatalog(ctx, store)
			defer closeCache()

			engine := eligibility.NewEngine(cat, a.logger, nil, a.cfg.Engine.MaxWorkers)
			res, err := engine.DetermineEligibility(ctx, req)
			if err != nil {
				return err
			}

			if outPath == "" {
				return printTable(cmd.OutOrStdout(), res)
			}

			if dir := filepath.Dir(outPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			meta := export.Meta{RequestID: res.RequestID, Category: res.Category, Generated: time.Now()}
			if err := export.WriteFile(outPath, meta, res.Courses); err != nil {
				return err
			}
			a.logger.Info("wrote eligible courses", "path", outPath, "courses", len(res.Courses))

			if uploadSFTP {
				upCfg := a.sftpConfig()
				remoteName := filepath.Base(outPath)

				upCtx, upCancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
				defer upCancel()

				if err := sftpclient.UploadFile(upCtx, upCfg, outPath, remoteName); err != nil {
					return err
				}
				a.logger.Info("uploaded", "url", fmt.Sprintf("sftp://%s:%d%s/%s", upCfg.Host, upCfg.Port, upCfg.RemoteDir, remoteName))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Override the profile's category")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write results to this CSV or XML file")
	cmd.Flags().BoolVar(&uploadSFTP, "sftp", false, "Upload the --out file via SFTP")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Determination timeout")
	return cmd
}

func readProfile(path string) (eligibility.Request, error) {
	var req eligibility.Request
	b, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("check: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("check: parse %s: %w", path, err)
	}
	return req, nil
}

func printTable(w io.Writer, res eligibility.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	degree := res.Category == domain.CategoryDegree

	if degree {
		fmt.Fprintln(tw, "CODE\tPROGRAMME\tINSTITUTION\tCLUSTER\tCUTOFF")
	} else {
		fmt.Fprintln(tw, "CODE\tPROGRAMME\tINSTITUTION\tLOCATION\tMEAN GRADE")
	}
	for _, c := range res.Courses {
		if degree {
			cutoff := "-"
			if c.Cutoff != nil {
				cutoff = strconv.FormatFloat(*c.Cutoff, 'f', 3, 64)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.Code, c.Name, c.Institution, c.Cluster, cutoff)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Code, c.Name, c.Institution, c.Location, c.MeanGrade)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := res.Stats
	_, err := fmt.Fprintf(w, "\n%d eligible of %d scanned (skipped %d, unparsed requirements %d, lenient grades %d)\n",
		s.Admitted, s.Scanned, s.Skipped, s.UnparsedRequirements, s.LenientGrades)
	return err
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/iota-uz/shepherd/modules/contacts/importer"
	"github.com/iota-uz/shepherd/modules/contacts/infrastructure/persistence"
	"github.com/iota-uz/shepherd/modules/contacts/services"
	"github.com/iota-uz/shepherd/pkg/eventbus"
)

const (
	duplicatesSkip   = "skip"
	duplicatesImport = "import"
	duplicatesReport = "report"
)

type importOptions struct {
	file       string
	ownerID    uuid.UUID
	mapping    string
	duplicates string
}

func newImportCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Preview or run a contact import from a .csv, .xlsx or .xls file",
	}
	cmd.AddCommand(newImportPreviewCmd())
	cmd.AddCommand(newImportRunCmd(g))
	return cmd
}

func newImportPreviewCmd() *cobra.Command {
	var file string
	var rows int
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show headers, the suggested mapping and the first rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(stdout(cmd), file, rows)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Input file (required)")
	cmd.Flags().IntVar(&rows, "rows", services.DefaultPreviewRows, "Rows to show")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runPreview(w io.Writer, file string, rows int) error {
	table, err := importer.ParseFile(file, filepath.Ext(file))
	if err != nil {
		return importErr(err)
	}
	sample := table.Rows
	if rows > 0 && len(sample) > rows {
		sample = sample[:rows]
	}
	return writeJSONLine(w, services.Preview{
		Headers:     table.Headers,
		Mapping:     importer.AutoDetect(table.Headers),
		PreviewRows: sample,
		TotalRows:   table.Len(),
	})
}

func newImportRunCmd(g *globalOptions) *cobra.Command {
	var opts importOptions
	var owner string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import contacts and resolve the duplicates it finds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDB(cmd.Context(), func(ctx context.Context, db *sqlx.DB) error {
				return runImport(ctx, stdout(cmd), opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "Input file (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner UUID (required)")
	cmd.Flags().StringVar(&opts.mapping, "mapping", "", `Column mapping as JSON, e.g. {"Name":"full_name"} (default: auto-detect)`)
	cmd.Flags().StringVar(&opts.duplicates, "duplicates", duplicatesReport, "What to do with duplicates: report|skip|import")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("owner")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(strings.TrimSpace(owner))
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("invalid --owner: %w", err))
		}
		opts.ownerID = id
		switch opts.duplicates {
		case duplicatesReport, duplicatesSkip, duplicatesImport:
		default:
			return withCode(exitUsage, fmt.Errorf("invalid --duplicates: %s", opts.duplicates))
		}
		return nil
	}
	return cmd
}

type importSummary struct {
	Imported   int                       `json:"imported"`
	Skipped    int                       `json:"skipped"`
	Errors     []string                  `json:"errors"`
	Duplicates []importer.DuplicateEntry `json:"duplicates"`
	Review     *importer.Counts          `json:"review,omitempty"`
}

func runImport(ctx context.Context, w io.Writer, opts importOptions) error {
	var mapping importer.Mapping
	if strings.TrimSpace(opts.mapping) != "" {
		if err := json.Unmarshal([]byte(opts.mapping), &mapping); err != nil {
			return withCode(exitUsage, fmt.Errorf("invalid --mapping: %w", err))
		}
	}

	svc := services.NewImportService(persistence.NewContactRepository(), eventbus.NewEventPublisher(nil), time.Hour, 0)
	res, err := svc.Execute(ctx, opts.ownerID, opts.file, filepath.Ext(opts.file), mapping)
	if err != nil {
		return importErr(err)
	}

	summary := importSummary{
		Imported:   res.Imported,
		Skipped:    res.Skipped,
		Errors:     res.Errors,
		Duplicates: res.Duplicates,
	}
	if res.SessionID != nil && opts.duplicates != duplicatesReport {
		session, err := svc.Session(opts.ownerID, *res.SessionID)
		if err != nil {
			return withCode(exitDB, err)
		}
		if opts.duplicates == duplicatesSkip {
			session.SkipAll()
		} else if _, err := session.ResolveSelected(ctx, session.Pending(), importer.ActionImport); err != nil {
			return withCode(exitDBWrite, err)
		}
		counts := session.Counts()
		summary.Review = &counts
		summary.Imported += counts.Imported
		svc.Close(opts.ownerID, *res.SessionID)
	}
	return writeJSONLine(w, summary)
}

func importErr(err error) error {
	var (
		unsupported *importer.UnsupportedFormatError
		storeErr    *importer.StorePersistenceError
	)
	switch {
	case errors.As(err, &unsupported), errors.Is(err, services.ErrInvalidMapping):
		return withCode(exitUsage, err)
	case errors.As(err, &storeErr):
		return withCode(exitDBWrite, err)
	default:
		return withCode(exitValidation, err)
	}
}

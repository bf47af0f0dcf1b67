package main

import (
	"context"
	"fmt"
	"io"
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

const applyKeepFirst = "keep-first"

type dedupeOptions struct {
	ownerID uuid.UUID
	apply   string
}

func newDedupeCmd(g *globalOptions) *cobra.Command {
	var opts dedupeOptions
	var owner string

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Scan an owner's contacts for duplicate pairs (dry-run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withDB(cmd.Context(), func(ctx context.Context, db *sqlx.DB) error {
				return runDedupe(ctx, stdout(cmd), opts)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner UUID (required)")
	cmd.Flags().StringVar(&opts.apply, "apply", "", "Resolve every pair: keep-first deletes the second contact of each pair")
	_ = cmd.MarkFlagRequired("owner")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(strings.TrimSpace(owner))
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("invalid --owner: %w", err))
		}
		opts.ownerID = id
		if opts.apply != "" && opts.apply != applyKeepFirst {
			return withCode(exitUsage, fmt.Errorf("invalid --apply: %s", opts.apply))
		}
		return nil
	}
	return cmd
}

type dedupeSummary struct {
	Pairs   []importer.Pair      `json:"pairs"`
	Counts  *importer.PairCounts `json:"counts,omitempty"`
	Deleted []uuid.UUID          `json:"deleted,omitempty"`
}

func runDedupe(ctx context.Context, w io.Writer, opts dedupeOptions) error {
	svc := services.NewDuplicateService(persistence.NewContactRepository(), eventbus.NewEventPublisher(nil), time.Hour)
	scan, err := svc.Scan(ctx, opts.ownerID)
	if err != nil {
		return withCode(exitDB, err)
	}
	summary := dedupeSummary{Pairs: scan.Pairs}
	if opts.apply == applyKeepFirst {
		review, err := svc.Review(opts.ownerID, scan.SessionID)
		if err != nil {
			return withCode(exitDB, err)
		}
		if _, err := review.ResolveSelected(ctx, review.Pending(), importer.PairKeepA); err != nil {
			return withCode(exitDBWrite, err)
		}
		counts := review.Counts()
		summary.Counts = &counts
		summary.Deleted = review.Deleted()
	}
	return writeJSONLine(w, summary)
}

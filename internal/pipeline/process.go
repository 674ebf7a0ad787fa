package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailcannon/internal"
	"mailcannon/internal/catalog"
	"mailcannon/internal/config"
	"mailcannon/internal/dispatch"
	"mailcannon/internal/orders"
	"mailcannon/internal/report"
	"mailcannon/internal/storage"
	"mailcannon/internal/validate"
)

type BatchService struct {
	cfg     config.Config
	db      *storage.DB
	creator dispatch.OrderCreator
	log     *zap.Logger
}

// NewBatchService wires one run. db may be nil, in which case the run is not
// added to the ledger.
func NewBatchService(cfg config.Config, db *storage.DB, creator dispatch.OrderCreator, log *zap.Logger) *BatchService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchService{cfg: cfg, db: db, creator: creator, log: log}
}

type RunOptions struct {
	Source       string
	DryRun       bool
	ValidateOnly bool
}

type RunResult struct {
	Run         report.Run
	Validation  validate.Result
	Summary     *internal.BatchSummary
	SummaryPath string
}

// Run reads, validates and, if every row passed, dispatches the batch. A
// *validate.BatchRejectedError means nothing was sent and no results file
// was written.
func (s *BatchService) Run(ctx context.Context, run report.Run, opts RunOptions) (RunResult, error) {
	result := RunResult{Run: run}
	divider := strings.Repeat("=", 60)

	s.log.Info(divider)
	s.log.Info("mail-cannon starting",
		zap.String("run_id", run.ID),
		zap.String("csv", opts.Source),
		zap.String("config", s.cfg.ConfigPath),
		zap.Bool("dry_run", opts.DryRun),
	)
	s.log.Info(divider)

	cat, err := catalog.New(s.cfg.SKUs)
	if err != nil {
		return result, err
	}

	sheet, err := orders.ReadFile(opts.Source)
	if err != nil {
		return result, fmt.Errorf("read %s: %w", opts.Source, err)
	}

	res := validate.Validate(sheet, cat)
	result.Validation = res
	s.log.Info("orders read",
		zap.String("source", opts.Source),
		zap.Int("rows", len(sheet.Records)-len(res.Skipped)),
		zap.Int("skipped_blank_email", len(res.Skipped)),
	)

	rows, err := validate.Gate(res)
	if err != nil {
		for _, verr := range res.Errors {
			s.log.Error(verr.Error(), zap.Int("row", verr.Row))
		}
		s.log.Error(err.Error())
		return result, err
	}
	s.log.Info("all rows passed validation", zap.Int("rows", len(rows)))

	if opts.ValidateOnly {
		return result, nil
	}

	rec := report.NewRecorder(run, opts.Source, opts.DryRun)
	dispatcher := dispatch.New(s.creator, dispatch.Options{
		SKUs:   cat.SKUs(),
		Tags:   s.cfg.Tags,
		Delay:  time.Duration(s.cfg.DelayMs) * time.Millisecond,
		DryRun: opts.DryRun,
	}, s.log)
	dispatchErr := dispatcher.Run(ctx, rows, rec)
	if dispatchErr != nil {
		s.log.Warn("batch interrupted, recording rows attempted so far", zap.Error(dispatchErr))
	}

	summary := rec.Summary()
	result.Summary = &summary

	s.log.Info(divider)
	if opts.DryRun {
		s.log.Info("dry run complete, no orders were created", zap.Int("built", summary.Total))
	} else {
		s.log.Info("COMPLETE",
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("total", summary.Total),
		)
	}
	s.log.Info(divider)

	if err := s.record(run, summary, &result); err != nil {
		return result, err
	}
	return result, dispatchErr
}

func (s *BatchService) record(run report.Run, summary internal.BatchSummary, result *RunResult) error {
	path := run.ResultsPath(s.cfg.OutputDir)
	if err := report.WriteSummary(path, summary); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	result.SummaryPath = path
	s.log.Info("results written", zap.String("path", path))

	if s.db == nil {
		return nil
	}
	if err := s.db.InsertRun(summary, path); err != nil {
		return fmt.Errorf("record run in ledger: %w", err)
	}
	return nil
}

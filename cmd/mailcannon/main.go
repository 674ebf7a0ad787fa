package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mailcannon/internal/config"
	"mailcannon/internal/logging"
	"mailcannon/internal/pipeline"
	"mailcannon/internal/report"
	"mailcannon/internal/storage"
	"mailcannon/internal/theseus"
	"mailcannon/internal/validate"
)

const (
	exitOK         = 0
	exitError      = 1
	exitAllFailed  = 2
	defaultListMax = 20
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitError)
	}

	cmd := os.Args[1]
	switch cmd {
	case "send":
		os.Exit(runBatch(cmd, os.Args[2:], false))
	case "validate":
		os.Exit(runBatch(cmd, os.Args[2:], true))
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", defaultListMax, "max runs to show")
		_ = fs.Parse(os.Args[2:])
		cfg, err := config.LoadEnv()
		must(err)
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		runs, err := db.ListRuns(*limit)
		must(err)
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return
		}
		for _, r := range runs {
			mode := "live"
			if r.DryRun {
				mode = "dry-run"
			}
			fmt.Printf("%s  %s  %-7s  total=%d ok=%d failed=%d  %s\n", r.RunID, r.RunAt, mode, r.Total, r.Succeeded, r.Failed, r.Source)
		}
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.String("run", "", "run id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*runID) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--run and --out are required"))
		}
		cfg, err := config.LoadEnv()
		must(err)
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		run, err := db.MustRun(*runID)
		must(err)
		outcomes, err := db.GetOutcomes(*runID)
		must(err)
		must(report.ExportOutcomesToXLSX(run, outcomes, *out))
		fmt.Printf("exported %d rows to %s\n", len(outcomes), *out)
	case "-h", "--help", "help":
		usage()
	default:
		os.Exit(runBatch("send", os.Args[1:], false))
	}
}

func runBatch(name string, args []string, validateOnly bool) int {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.json or config.yaml")
	dryRun := fs.Bool("dry-run", false, "validate and build payloads without sending")
	positional := parseInterleaved(fs, args)
	if len(positional) != 1 {
		usage()
		return exitError
	}
	source := positional[0]

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitError
	}

	run := report.NewRun(time.Now())
	runLog, err := logging.Open(run.LogPath(cfg.OutputDir), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open log: %v\n", err)
		return exitError
	}
	defer runLog.Close()
	log := runLog.Logger

	var db *storage.DB
	if !validateOnly {
		db, err = storage.Open(cfg.DBPath)
		if err != nil {
			log.Error("open run ledger", zap.Error(err))
			return exitError
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := pipeline.NewBatchService(cfg, db, theseus.NewClient(cfg, log), log)
	res, err := svc.Run(ctx, run, pipeline.RunOptions{
		Source:       source,
		DryRun:       *dryRun,
		ValidateOnly: validateOnly,
	})
	log.Info("log file", zap.String("path", runLog.Path))

	var rejected *validate.BatchRejectedError
	switch {
	case errors.As(err, &rejected):
		return exitError
	case err != nil:
		log.Error(err.Error())
		return exitError
	}

	s := res.Summary
	if s == nil || s.DryRun || s.Failed == 0 {
		return exitOK
	}
	if s.Succeeded == 0 {
		log.Error("every order failed", zap.Int("failed", s.Failed))
		return exitAllFailed
	}
	log.Warn("some orders failed",
		zap.Int("failed", s.Failed),
		zap.Int("total", s.Total),
		zap.String("results", res.SummaryPath),
	)
	return exitOK
}

// parseInterleaved lets flags appear before or after the orders file.
func parseInterleaved(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		_ = fs.Parse(args)
		rest := fs.Args()
		if len(rest) == 0 {
			return positional
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func usage() {
	fmt.Println("usage: mailcannon <command>")
	fmt.Println("commands:")
	fmt.Println("  [send] [--config=config.json] [--dry-run] <orders.csv|orders.xlsx>")
	fmt.Println("  validate [--config=config.json] <orders.csv|orders.xlsx>")
	fmt.Println("  runs:list [--limit=20]")
	fmt.Println("  export:xlsx --run=<run id> --out=./out/run.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(exitError)
}

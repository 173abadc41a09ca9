package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mossipcams/ha-ml-data-layer/internal/metrics"
	"github.com/mossipcams/ha-ml-data-layer/internal/pipeline"
	"github.com/mossipcams/ha-ml-data-layer/internal/storage/sqlite"
	"github.com/mossipcams/ha-ml-data-layer/pkg/config"
	"github.com/mossipcams/ha-ml-data-layer/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	metrics.Init()
	if cfg.Metrics.Enabled {
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, metrics.Handler()); err != nil {
				log.Error("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	client, err := sqlite.NewClient(cfg.SQLite.Path, cfg.SQLite.BusyTimeoutMS, log)
	if err != nil {
		log.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer client.Close()

	if err := client.EnsureSchema(sqlite.CurrentSchemaVersion); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	layer := pipeline.New(client, cfg, log)

	switch os.Args[1] {
	case "nightly":
		runNightly(layer, log, os.Args[2:])
	case "retention":
		report, err := layer.RunRetention(time.Now())
		if err != nil {
			log.Fatal("Retention maintenance failed", zap.Error(err))
		}
		fmt.Printf("deleted %d raw events, %d feature rows\n", report.RawEventsDeleted, report.FeatureRowsDeleted)
	case "diagnostics":
		diag, err := layer.Diagnostics()
		if err != nil {
			log.Fatal("Diagnostics failed", zap.Error(err))
		}
		fmt.Printf("raw_events=%d features=%d labels=%d scorer=%s tracker=%s degraded=%t\n",
			diag.RawEventCount, diag.FeatureCount, diag.LabelCount,
			diag.ScorerLastStatus, diag.TrackerLastStatus, diag.Degraded)
	case "contracts":
		report, err := layer.ValidateContracts()
		if err != nil {
			log.Fatal("Contract validation failed", zap.Error(err))
		}
		fmt.Printf("contract_version=%s\n", report.ContractVersion)
		for _, view := range report.Views {
			fmt.Println(view)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func runNightly(layer *pipeline.DataLayer, log *zap.Logger, args []string) {
	fs := flag.NewFlagSet("nightly", flag.ExitOnError)
	localDate := fs.String("date", "", "local calendar date (YYYY-MM-DD)")
	sleepStart := fs.String("sleep-start", "", "sleep window start (HH:MM:SS)")
	sleepEnd := fs.String("sleep-end", "", "sleep window end (HH:MM:SS)")
	windowStart := fs.String("window-start", "", "feature window start (RFC3339)")
	windowEnd := fs.String("window-end", "", "feature window end (RFC3339)")
	fs.Parse(args)

	start, err := time.Parse(time.RFC3339, *windowStart)
	if err != nil {
		log.Fatal("Invalid window start", zap.Error(err))
	}
	end, err := time.Parse(time.RFC3339, *windowEnd)
	if err != nil {
		log.Fatal("Invalid window end", zap.Error(err))
	}

	if err := layer.RunNightlyPipeline(*localDate, *sleepStart, *sleepEnd, start, end); err != nil {
		log.Fatal("Nightly pipeline failed", zap.Error(err))
	}
}

func usage() {
	fmt.Println("usage: ha-ml-data-layer <nightly|retention|diagnostics|contracts> [flags]")
}

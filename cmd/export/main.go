// Command export streams every measurement for one metric to a CSV
// file. The connection target picks the backend: a postgres:// DSN
// streams straight from the database, any other URL is treated as a
// PostgREST-style endpoint and requires an access key.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sensord/sensord/internal/config"
	"github.com/sensord/sensord/internal/export"
	"github.com/sensord/sensord/internal/models"
)

func main() {
	_ = godotenv.Load()

	var (
		target   = flag.String("url", config.GetEnv("SUPABASE_URL", ""), "postgres:// DSN or remote base URL (env SUPABASE_URL)")
		key      = flag.String("key", config.GetEnv("SUPABASE_KEY", ""), "remote access key (env SUPABASE_KEY; remote mode only)")
		metric   = flag.String("metric", "temperature", "metric to export")
		deviceID = flag.String("device-id", "", "restrict the export to one device")
		batch    = flag.Int("batch", 5000, "rows fetched per chunk")
		out      = flag.String("out", "", "output CSV path (default <metric>_all.csv)")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if *target == "" {
		fatal("missing -url (or SUPABASE_URL)")
	}
	if !models.Metric(*metric).Valid() {
		fatal(fmt.Sprintf("unknown metric %q", *metric))
	}

	outPath := *out
	if outPath == "" {
		outPath = *metric + "_all.csv"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := export.NewSource(ctx, export.Options{
		Target:   *target,
		Key:      *key,
		Metric:   *metric,
		DeviceID: *deviceID,
		Batch:    *batch,
	})
	if err != nil {
		fatal(err.Error())
	}
	defer src.Close()

	total, err := export.Run(ctx, src, outPath)
	if err != nil {
		// Rows already written stay on disk; the file is visibly
		// incomplete rather than corrupted.
		slog.Error("export failed", "rows_written", total, "out", outPath, "error", err)
		os.Exit(1)
	}

	slog.Info("export complete", "rows", total, "out", outPath)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "ERROR: "+msg)
	os.Exit(2)
}

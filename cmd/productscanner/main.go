package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"ProductScanner/internal/app"
	"ProductScanner/internal/config"
	"ProductScanner/internal/domain"
	"ProductScanner/internal/infrastructure/export"
	"ProductScanner/internal/logging"
)

const usage = `usage: productscanner <command> [flags]

commands:
  serve                          run the HTTP API (default)
  extract [-format f] [-o file] <url>
                                 extract products from one listing page
  init-db                        create the SQL schema
  migrate -from-dir <dir>        copy file-store sessions into the configured store
`

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// .env is optional; existing environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewWithWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return serve(ctx, cfg, logger)
	case "extract":
		return extract(ctx, cfg, logger, args, stdout, stderr)
	case "init-db":
		return initDB(ctx, cfg, logger, stderr)
	case "migrate":
		return migrate(ctx, cfg, logger, args, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", command, usage)
		return exitUsage
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return exitFailure
	}
	defer closeApp(application, logger)

	if err := application.Serve(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		return exitFailure
	}
	return exitOK
}

func extract(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", export.FormatJSON, "output format: json, csv or xlsx")
	output := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	result, err := app.NewPipeline(cfg, logger, nil).Extract(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "extract: %v\n", err)
		if errors.Is(err, domain.ErrInvalidURL) {
			return exitUsage
		}
		return exitFailure
	}

	w := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(stderr, "extract: %v\n", err)
			return exitFailure
		}
		defer f.Close()
		w = f
	}

	if err := writeResult(w, strings.ToLower(*format), cfg.Export.Columns, result); err != nil {
		fmt.Fprintf(stderr, "extract: %v\n", err)
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return exitUsage
		}
		return exitFailure
	}
	logger.Info("extract finished", "items", len(result.Items), "duration", result.Duration)
	return exitOK
}

func writeResult(w io.Writer, format string, columns map[string]string, result domain.ExtractionResult) error {
	if format == export.FormatJSON {
		return export.WriteJSON(w, result)
	}
	return export.NewExporter(columns).Write(w, format, result.ValidItems(), nil)
}

func initDB(ctx context.Context, cfg config.Config, logger *slog.Logger, stderr io.Writer) int {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return exitFailure
	}
	defer closeApp(application, logger)

	if err := application.InitDB(ctx); err != nil {
		fmt.Fprintf(stderr, "init-db: %v\n", err)
		return exitFailure
	}
	logger.Info("database initialized", "driver", cfg.Storage.Driver)
	return exitOK
}

func migrate(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fromDir := fs.String("from-dir", cfg.Storage.DataDir, "file store directory to read sessions from")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if cfg.Storage.Driver == config.DriverFile {
		fmt.Fprintln(stderr, "migrate: configure a SQL storage driver or DATABASE_URL first")
		return exitUsage
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return exitFailure
	}
	defer closeApp(application, logger)

	report, err := application.MigrateFrom(ctx, *fromDir)
	if err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "migrated %d sessions, %d failed\n", report.Migrated, report.Failed)
	if report.Failed > 0 {
		return exitFailure
	}
	return exitOK
}

func closeApp(application *app.Application, logger *slog.Logger) {
	if err := application.Close(); err != nil {
		logger.Warn("close storage", "error", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bloodbuddy/donor-cli/internal/config"
	"github.com/bloodbuddy/donor-cli/internal/fetcher"
	"github.com/bloodbuddy/donor-cli/internal/ingest"
	"github.com/bloodbuddy/donor-cli/internal/metrics"
	"github.com/bloodbuddy/donor-cli/internal/model"
	"github.com/bloodbuddy/donor-cli/internal/monitoring"
	"github.com/bloodbuddy/donor-cli/internal/store"
)

type ingestOptions struct {
	file         string
	sheet        string
	dryRun       bool
	report       string
	reportFormat string
	limit        int
}

var ingestOpts ingestOptions

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Import donors from a spreadsheet",
	Long: `Reads a donor spreadsheet (xlsx or csv, local path or http/https/ftp URL),
validates each row, normalizes blood groups, geocodes addresses and inserts new
donors. Contacts already in the registry are skipped. Ctrl-C stops after the
current row and still prints the report.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}
		return runIngest(ctx, cfg, ingestOpts, cmd.OutOrStdout())
	},
}

func runIngest(ctx context.Context, c *config.Config, opts ingestOptions, out io.Writer) error {
	if opts.reportFormat != "json" && opts.reportFormat != "yaml" {
		return eris.Errorf("ingest: unsupported report format %q", opts.reportFormat)
	}

	sources := &fetcher.Sources{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: c.Ingest.DownloadTimeout()}),
		FTP:  fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: c.Ingest.DownloadTimeout()}),
	}
	path, cleanup, err := sources.Localize(ctx, opts.file)
	if err != nil {
		return err
	}
	defer cleanup()

	sheet := opts.sheet
	if sheet == "" {
		sheet = c.Ingest.Sheet
	}
	rows, err := fetcher.ReadRows(path, fetcher.RowOptions{Sheet: sheet})
	if err != nil {
		return err
	}
	if opts.limit > 0 && len(rows) > opts.limit {
		rows = rows[:opts.limit]
	}

	var st store.Store
	if opts.dryRun {
		st = store.NewMemory()
	} else {
		st, err = initStore(ctx, c)
		if err != nil {
			return eris.Wrap(err, "ingest: open store")
		}
	}
	defer st.Close() //nolint:errcheck

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := ingest.New(st, newResolver(c, m), ingest.Config{
		Columns: c.Ingest.Columns,
		Source:  opts.file,
		DryRun:  opts.dryRun,
	}, ingest.WithMetrics(m))
	report, runErr := p.Run(ctx, rows)

	fmt.Fprint(out, report.Summary())
	if c.Monitoring.WebhookURL != "" && !opts.dryRun {
		alerter := monitoring.NewAlerter(c.Monitoring)
		alerter.SendAlerts(context.WithoutCancel(ctx), alerter.Evaluate(report, runErr))
	}
	if c.Monitoring.PushgatewayURL != "" && !opts.dryRun {
		if err := metrics.Push(context.WithoutCancel(ctx), c.Monitoring.PushgatewayURL, metrics.IngestJob, report.RunID, reg); err != nil {
			zap.L().Warn("push ingest metrics", zap.Error(err))
		}
	}
	if opts.report != "" {
		if err := writeReport(opts.report, opts.reportFormat, report); err != nil {
			zap.L().Error("write run report", zap.String("path", opts.report), zap.Error(err))
		}
	}
	return runErr
}

func writeReport(path, format string, report model.RunReport) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml":
		data, err = yaml.Marshal(report)
	default:
		data, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		return eris.Wrap(err, "ingest: encode report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "ingest: write report %s", path)
	}
	return nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOpts.file, "file", "", "spreadsheet path or http(s)/ftp URL (required)")
	ingestCmd.Flags().StringVar(&ingestOpts.sheet, "sheet", "", "xlsx sheet name (default from config, else first sheet)")
	ingestCmd.Flags().BoolVar(&ingestOpts.dryRun, "dry-run", false, "validate and geocode without writing to the store")
	ingestCmd.Flags().StringVar(&ingestOpts.report, "report", "", "write the run report to this file")
	ingestCmd.Flags().StringVar(&ingestOpts.reportFormat, "report-format", "json", "run report format: json or yaml")
	ingestCmd.Flags().IntVar(&ingestOpts.limit, "limit", 0, "process at most N data rows (0 = all)")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

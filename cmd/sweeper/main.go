// Command sweeper reclaims expired orders. By default it runs one pass and
// prints one line per examined order, for use from cron or a Kubernetes
// CronJob.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/Kreolis/cinema-ticketing/internal/app"
	"github.com/Kreolis/cinema-ticketing/internal/config"
	"github.com/Kreolis/cinema-ticketing/internal/core/services"
	"github.com/Kreolis/cinema-ticketing/internal/platform/logging"
)

func main() {
	var (
		envFile  = pflag.String("env-file", ".env", "optional dotenv file")
		interval = pflag.Duration("interval", 0, "keep running and sweep at this interval instead of once")
		batch    = pflag.Int("batch", 0, "override SWEEPER_BATCH")
	)
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	if *batch > 0 {
		cfg.Sweeper.Batch = *batch
	}

	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer application.Close()

	if *interval > 0 {
		application.Sweeper.Run(ctx, *interval)
		return
	}

	report := application.Sweeper.Sweep(ctx)
	printReport(os.Stdout, report)
	if report.Err != nil {
		application.Close()
		os.Exit(1)
	}
}

func printReport(w io.Writer, report services.SweepReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tTICKETS\tERROR")
	for _, res := range report.Results {
		errText := "-"
		if res.Err != nil {
			errText = res.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.OrderID, res.Outcome, res.Tickets, errText)
	}
	_ = tw.Flush()

	status := "ok"
	if report.Err != nil {
		status = "error: " + report.Err.Error()
	}
	fmt.Fprintf(w, "reclaimed=%d examined=%d failed=%d duration=%s status=%s\n",
		report.Reclaimed, report.Examined, report.Failed(), report.Duration.Round(time.Millisecond), status)
}

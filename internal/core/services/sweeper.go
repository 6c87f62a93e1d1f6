package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/ports"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
	"github.com/Kreolis/cinema-ticketing/internal/platform/metrics"
)

type SweepResult struct {
	OrderID uuid.UUID
	Outcome string
	Tickets int
	Err     error
}

// SweepReport summarizes one pass. Err is set only when candidates could
// not be listed at all.
type SweepReport struct {
	Examined  int
	Reclaimed int
	Results   []SweepResult
	Duration  time.Duration
	Err       error
}

func (r SweepReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == metrics.SweepFailed {
			n++
		}
	}
	return n
}

// Sweeper deletes orders whose timeout elapsed. Each candidate is re-read
// under lock and deleted only if it is still expired and its version still
// matches the listed one, so a concurrent extension always wins.
type Sweeper struct {
	store  ports.Store
	ledger *Ledger
	cache  ports.AvailabilityCache
	clock  clock.Clock
	log    *slog.Logger
	batch  int
}

func NewSweeper(store ports.Store, ledger *Ledger, cache ports.AvailabilityCache, clk clock.Clock, logger *slog.Logger, batch int) *Sweeper {
	return &Sweeper{
		store:  store,
		ledger: ledger,
		cache:  cache,
		clock:  clk,
		log:    logger,
		batch:  batch,
	}
}

func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("expiry sweeper started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) SweepReport {
	start := time.Now()
	report := SweepReport{}
	defer func() {
		report.Duration = time.Since(start)
		metrics.ObserveSweep(report.Duration)
	}()

	var candidates []ports.ExpiryCandidate
	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		var err error
		candidates, err = tx.ListExpiryCandidates(ctx, s.clock.Now(), s.batch)
		return err
	})
	if err != nil {
		s.log.Error("listing expired orders failed", slog.Any("error", err))
		report.Err = err
		return report
	}

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		report.Examined++

		res := s.reclaim(ctx, c)
		metrics.SweptOrder(res.Outcome)
		switch res.Outcome {
		case metrics.SweepReclaimed:
			report.Reclaimed++
			s.log.Info("expired order reclaimed",
				slog.String("order_id", c.OrderID.String()),
				slog.Int("tickets", res.Tickets),
			)
		case metrics.SweepFailed:
			s.log.Error("reclaiming expired order failed",
				slog.String("order_id", c.OrderID.String()),
				slog.Any("error", res.Err),
			)
		}
		report.Results = append(report.Results, res)
	}

	if report.Examined > 0 {
		s.log.Info("expiry sweep finished",
			slog.Int("examined", report.Examined),
			slog.Int("reclaimed", report.Reclaimed),
			slog.Int("failed", report.Failed()),
		)
	}
	return report
}

func (s *Sweeper) reclaim(ctx context.Context, c ports.ExpiryCandidate) SweepResult {
	res := SweepResult{OrderID: c.OrderID, Outcome: metrics.SweepSkipped}

	var events []uuid.UUID
	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		o, err := tx.GetOrder(ctx, c.OrderID)
		if err != nil {
			return err
		}
		if o.Version != c.Version || !o.IsExpired(s.clock.Now()) {
			return nil
		}

		if err := s.ledger.Release(ctx, tx, o.Tickets); err != nil {
			return err
		}
		if err := tx.DeleteOrder(ctx, o.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}

		for _, t := range o.Tickets {
			events = append(events, t.EventID)
		}
		res.Outcome = metrics.SweepReclaimed
		res.Tickets = len(o.Tickets)
		return nil
	})

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return SweepResult{OrderID: c.OrderID, Outcome: metrics.SweepSkipped}
	case err != nil:
		return SweepResult{OrderID: c.OrderID, Outcome: metrics.SweepFailed, Err: err}
	}

	seen := make(map[uuid.UUID]struct{})
	for _, id := range events {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.log.Warn("availability cache invalidation failed", slog.String("event_id", id.String()), slog.Any("error", err))
		}
	}
	return res
}

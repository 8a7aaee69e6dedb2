package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/Abd-elrahmann/inestors-backend/notify"
	"github.com/Abd-elrahmann/inestors-backend/profit"
	"github.com/Abd-elrahmann/inestors-backend/reports"
)

const (
	JobProfitRecalculation = "profit-recalculation"
	JobAutoRollover        = "auto-rollover"
	JobExportCleanup       = "export-cleanup"
	JobNotificationCleanup = "notification-cleanup"
)

type JobIntervals struct {
	Recalculation       time.Duration
	AutoRollover        time.Duration
	ExportCleanup       time.Duration
	NotificationCleanup time.Duration
}

func DefaultJobIntervals() JobIntervals {
	return JobIntervals{
		Recalculation:       30 * time.Minute,
		AutoRollover:        24 * time.Hour,
		ExportCleanup:       7 * 24 * time.Hour,
		NotificationCleanup: 24 * time.Hour,
	}
}

// RegisterDefaultJobs wires the maintenance jobs. A nil renderer or sink
// leaves its cleanup job out.
func RegisterDefaultJobs(s *Scheduler, svc *profit.Service, sink *notify.Sink, renderer *reports.Renderer, iv JobIntervals) error {
	jobs := []Job{
		{Name: JobProfitRecalculation, Interval: iv.Recalculation, Run: func(ctx context.Context) error {
			rep, err := svc.RecalculateActiveYears(ctx)
			if err != nil {
				return err
			}
			s.log.InfoContext(ctx, "active years recalculated",
				slog.Int("checked", rep.Checked),
				slog.Int("recalculated", rep.Recalculated),
				slog.Int("failed", rep.Failed))
			return nil
		}},
		{Name: JobAutoRollover, Interval: iv.AutoRollover, Run: func(ctx context.Context) error {
			rep, err := svc.ExecuteAutoRollover(ctx)
			if err != nil {
				return err
			}
			s.log.InfoContext(ctx, "auto rollover executed", slog.Int("years", rep.ProcessedYears))
			return nil
		}},
	}
	if renderer != nil {
		jobs = append(jobs, Job{Name: JobExportCleanup, Interval: iv.ExportCleanup, Run: func(ctx context.Context) error {
			n, err := renderer.CleanupOldExports()
			if err != nil {
				return err
			}
			s.log.InfoContext(ctx, "old exports removed", slog.Int("files", n))
			return nil
		}})
	}
	if sink != nil {
		jobs = append(jobs, Job{Name: JobNotificationCleanup, Interval: iv.NotificationCleanup, Run: func(ctx context.Context) error {
			n, err := sink.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			s.log.InfoContext(ctx, "expired notifications removed", slog.Int("notifications", n))
			return nil
		}})
	}

	for _, j := range jobs {
		if err := s.Register(j); err != nil {
			return err
		}
	}
	return nil
}

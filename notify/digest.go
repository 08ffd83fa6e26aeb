package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DayStats is the 24-hour activity summary the ledger reports.
type DayStats struct {
	Bookings    int64
	Escalations int64
	Incidents   int64
}

// StatsSource provides the counts behind the daily digest.
type StatsSource interface {
	DayStats(ctx context.Context, since, until time.Time) (DayStats, error)
}

// Digest sends moderators a daily activity summary on a cron schedule.
// Quiet days are suppressed.
type Digest struct {
	source   StatsSource
	notifier Notifier
	schedule cron.Schedule
	spec     string
}

// NewDigest parses the 5-field cron spec and builds the digest job.
func NewDigest(source StatsSource, notifier Notifier, spec string) (*Digest, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("digest: bad schedule %q: %w", spec, err)
	}
	return &Digest{source: source, notifier: notifier, schedule: sched, spec: spec}, nil
}

// Start runs the schedule loop until ctx is cancelled.
func (d *Digest) Start(ctx context.Context) {
	go func() {
		log.Printf("📊 Daily digest scheduled (%s)", d.spec)
		for {
			next := d.schedule.Next(time.Now())
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
				d.fire(ctx)
			}
		}
	}()
}

func (d *Digest) fire(ctx context.Context) {
	ev, err := d.Build(ctx, time.Now())
	if err != nil {
		log.Printf("⚠️ Digest build failed: %v", err)
		return
	}
	if ev == nil {
		log.Printf("📊 Digest suppressed, no activity in the last 24h")
		return
	}
	d.notifier.Notify(ctx, *ev)
}

// Build computes the trailing 24-hour summary ending at now. It returns nil
// when there was no activity.
func (d *Digest) Build(ctx context.Context, now time.Time) (*Event, error) {
	since := now.Add(-24 * time.Hour)
	stats, err := d.source.DayStats(ctx, since, now)
	if err != nil {
		return nil, fmt.Errorf("digest: day stats: %w", err)
	}
	if stats.Bookings == 0 && stats.Escalations == 0 && stats.Incidents == 0 {
		return nil, nil
	}
	summary := fmt.Sprintf("Period: %s to %s\nBookings: %d\nEscalations: %d\nSecurity incidents: %d",
		since.Format("Jan 2 15:04"), now.Format("Jan 2 15:04"),
		stats.Bookings, stats.Escalations, stats.Incidents)
	return &Event{Kind: KindDigest, Summary: summary}, nil
}

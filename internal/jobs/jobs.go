// Package jobs runs periodic maintenance next to the HTTP server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// cronParser accepts standard 5-field expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

var receiptsPurged = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "vendorbot_receipts_purged_total",
	Help: "Expired webhook receipts removed by the purge job.",
})

func init() {
	prometheus.MustRegister(receiptsPurged)
}

// Purger removes expired webhook receipts.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Scheduler owns a cron runner.
type Scheduler struct {
	cron *cron.Cron
}

// NewReceiptPurge schedules p.Purge on spec.
func NewReceiptPurge(spec string, p Purger) (*Scheduler, error) {
	c := cron.New(cron.WithParser(cronParser))
	if _, err := c.AddFunc(spec, func() { PurgeOnce(context.Background(), p) }); err != nil {
		return nil, fmt.Errorf("receipt purge schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// Next returns the next fire time after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(now)
}

// PurgeOnce runs one purge and logs the outcome.
func PurgeOnce(ctx context.Context, p Purger) (int64, error) {
	start := time.Now()
	n, err := p.Purge(ctx)
	if err != nil {
		log.Error().Err(err).Msg("receipt purge failed")
		return 0, err
	}
	receiptsPurged.Add(float64(n))
	log.Debug().Int64("removed", n).Dur("took", time.Since(start)).Msg("receipt purge")
	return n, nil
}

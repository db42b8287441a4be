package monitoring

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/config"
)

// Checker watches refresh run history in the background. It remembers
// which funds were failing at the previous check so a persistent outage
// pages once, not on every tick.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	failing  []string
	alerted  []string
	hasAlert bool
}

// CheckReport summarizes one check.
type CheckReport struct {
	// NewlyFailing are funds whose latest run failed since the last check.
	NewlyFailing []string
	// Recovered are funds that were failing and whose latest run no longer is.
	Recovered []string
	Alerts    int
	Sent      int
	// Suppressed is set when alerts were raised but the failing funds match
	// the last alert sent.
	Suppressed bool
}

// NewChecker creates a background run-health checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run checks every monitoring.check_interval_secs until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("run health checker started",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("run health checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx, log)
		}
	}
}

// Check collects one snapshot, reports fund transitions and sends alerts
// unless the failing funds are unchanged since the last alert.
func (c *Checker) Check(ctx context.Context, log *zap.Logger) CheckReport {
	var rep CheckReport
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect run history", zap.Error(err))
		return rep
	}

	rep.NewlyFailing = missingFrom(snap.FailedFunds, c.failing)
	rep.Recovered = missingFrom(c.failing, snap.FailedFunds)
	for _, id := range rep.NewlyFailing {
		log.Warn("monitoring: fund refresh failing", zap.String("fund", id))
	}
	for _, id := range rep.Recovered {
		log.Info("monitoring: fund refresh recovered", zap.String("fund", id))
	}
	c.failing = slices.Clone(snap.FailedFunds)

	alerts := c.alerter.EvaluateSnapshot(snap)
	rep.Alerts = len(alerts)
	if len(alerts) == 0 {
		c.hasAlert = false
		c.alerted = nil
		return rep
	}
	if c.hasAlert && slices.Equal(c.alerted, snap.FailedFunds) {
		rep.Suppressed = true
		log.Debug("monitoring: failing funds unchanged, alert not resent",
			zap.Strings("funds", snap.FailedFunds))
		return rep
	}

	rep.Sent = c.alerter.SendAlerts(ctx, alerts)
	c.hasAlert = true
	c.alerted = slices.Clone(snap.FailedFunds)
	log.Info("monitoring: run health alert",
		zap.Strings("failed_funds", snap.FailedFunds),
		zap.Float64("fail_rate", snap.FailRate),
		zap.Int("alerts_sent", rep.Sent),
	)
	return rep
}

// missingFrom returns the ids in a that are not in b. Both are sorted.
func missingFrom(a, b []string) []string {
	var out []string
	for _, id := range a {
		if _, found := slices.BinarySearch(b, id); !found {
			out = append(out, id)
		}
	}
	return out
}

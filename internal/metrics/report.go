package metrics

import (
	"fmt"
	"sort"

	cronlib "github.com/robfig/cron/v3"

	. "github.com/roelfdiedericks/floragate/internal/logging"
)

// scheduleParser accepts standard five-field expressions and @descriptors
var scheduleParser = cronlib.NewParser(cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)

// Reporter logs a metrics summary on a cron schedule
type Reporter struct {
	cron *cronlib.Cron
}

// StartReporter schedules m.LogSummary with a cron expression such as
// "@hourly" or "*/15 * * * *".
func StartReporter(m *MetricsManager, expr string) (*Reporter, error) {
	c := cronlib.New(cronlib.WithParser(scheduleParser))
	if _, err := c.AddFunc(expr, m.LogSummary); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	c.Start()
	L_debug("metrics: reporter scheduled", "schedule", expr)
	return &Reporter{cron: c}, nil
}

// ValidSchedule reports whether expr parses
func ValidSchedule(expr string) error {
	_, err := scheduleParser.Parse(expr)
	return err
}

// Stop halts the schedule and waits for a running report to finish
func (r *Reporter) Stop() {
	if r == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// Summary renders one line per success/fail and timing metric, sorted by path
func (m *MetricsManager) Summary() []string {
	snap := m.GetSnapshot()
	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var lines []string
	for _, p := range paths {
		switch d := snap[p].Data.(type) {
		case SuccessFailSnapshot:
			lines = append(lines, fmt.Sprintf("%s ok=%d fail=%d rate=%.2f", p, d.Success, d.Failures, d.SuccessRate))
		case TimingSnapshot:
			lines = append(lines, fmt.Sprintf("%s n=%d avg=%.0fms p95=%.0fms", p, d.Count, d.AvgMs, d.P95Ms))
		}
	}
	return lines
}

// LogSummary writes Summary to the log at info level
func (m *MetricsManager) LogSummary() {
	lines := m.Summary()
	if len(lines) == 0 {
		return
	}
	for _, line := range lines {
		L_info("metrics: " + line)
	}
}

package checks

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charlesng35/salonhub/internal/app/maintenance"
	"github.com/charlesng35/salonhub/internal/monitoring"
)

// JobReporter exposes the outcome of recent maintenance runs.
// *maintenance.Scheduler satisfies it.
type JobReporter interface {
	Jobs() []maintenance.JobStatus
}

// Maintenance reports degraded when a job's latest run failed. Requests are
// still served because the tenant guard repairs schemas on demand.
func Maintenance(jobs JobReporter) monitoring.Check {
	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		start := time.Now()
		if jobs == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		var failures []string
		for _, job := range jobs.Jobs() {
			if job.ConsecutiveFailures > 0 {
				failures = append(failures, job.Name+": "+strconv.Itoa(job.ConsecutiveFailures)+" consecutive failures ("+job.LastError+")")
			}
		}

		if len(failures) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusDegraded,
			Details:  strings.Join(failures, "; "),
			Duration: time.Since(start),
		}
	})
}

package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rotisserie/eris"
)

// IngestJob is the Pushgateway job name for ingest runs.
const IngestJob = "bloodbuddy_ingest"

// Push replaces the metrics for job and runID on the Pushgateway at url with
// everything g gathers.
func Push(ctx context.Context, url, job, runID string, g prometheus.Gatherer) error {
	p := push.New(url, job).Gatherer(g)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return eris.Wrapf(err, "metrics: push to %s", url)
	}
	return nil
}

package observability

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// TextfileName is the metrics file written into each run directory.
const TextfileName = "metrics.prom"

// Stage names used as the "stage" label.
const (
	StageMaterialize = "materialize"
	StageStage       = "stage"
	StagePrepare     = "prepare"
	StageWorker      = "worker"
	StageComplete    = "complete"
)

// Recorder collects the metrics of a single run.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	workerExit    prometheus.Gauge
	runInfo       *prometheus.GaugeVec
	pageMemory    *prometheus.GaugeVec
	steps         *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shastarun_stage_duration_seconds",
				Help:    "Duration of each orchestration stage",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 12),
			},
			[]string{"stage"},
		),
		workerExit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shastarun_worker_exit_code",
			Help: "Exit status of the worker, -1 if it did not exit normally",
		}),
		runInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shastarun_run_info",
				Help: "Final state of the run",
			},
			[]string{"run_id", "state"},
		),
		pageMemory: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shastarun_page_memory_bytes",
				Help: "Size of the huge-page filesystem when the worker exited",
			},
			[]string{"kind"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shastarun_page_memory_steps_total",
				Help: "Page memory save and cleanup steps performed",
			},
			[]string{"step"},
		),
	}
	r.workerExit.Set(-1)
	r.registry.MustRegister(r.stageDuration, r.workerExit, r.runInfo, r.pageMemory, r.steps)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Time starts timing stage and returns the function that stops it.
func (r *Recorder) Time(stage string) func() {
	start := time.Now()
	return func() {
		r.ObserveStage(stage, time.Since(start))
	}
}

// SetWorkerExit records the worker exit status.
func (r *Recorder) SetWorkerExit(code int) {
	r.workerExit.Set(float64(code))
}

// SetPageMemory records the filesystem size and usage at the mount point.
func (r *Recorder) SetPageMemory(total, used uint64) {
	r.pageMemory.WithLabelValues("total").Set(float64(total))
	r.pageMemory.WithLabelValues("used").Set(float64(used))
}

// Finish records the final state and the page-memory steps of rec.
func (r *Recorder) Finish(rec *domain.RunRecord) {
	r.runInfo.WithLabelValues(rec.ID, string(rec.State)).Set(1)
	if rec.Saved {
		r.steps.WithLabelValues("save").Inc()
	}
	if rec.Cleaned {
		r.steps.WithLabelValues("cleanup").Inc()
	}
}

// WriteTextfile writes every metric to <dir>/metrics.prom atomically.
func (r *Recorder) WriteTextfile(dir string) error {
	path := filepath.Join(dir, TextfileName)
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

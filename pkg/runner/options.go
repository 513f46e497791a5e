package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/shastarun/pkg/conf"
	"github.com/aretw0/shastarun/pkg/observability"
	"github.com/aretw0/shastarun/pkg/ports"
	"github.com/aretw0/shastarun/pkg/stage"
)

// Option defines a functional option for configuring the Driver.
type Option func(*Driver)

// WithMaterializer sets the configuration source.
func WithMaterializer(m *conf.Materializer) Option {
	return func(d *Driver) {
		d.materializer = m
	}
}

// WithStager replaces the default run-directory stager.
func WithStager(s *stage.Stager) Option {
	return func(d *Driver) {
		d.stager = s
	}
}

// WithPreparer replaces the filesystem preparer.
func WithPreparer(p ports.Preparer) Option {
	return func(d *Driver) {
		d.preparer = p
	}
}

// WithLedger records runs.
func WithLedger(l ports.RunLedger) Option {
	return func(d *Driver) {
		d.ledger = l
	}
}

// WithLocker serializes runs on the page memory identified by key.
func WithLocker(l ports.DistributedLocker, key string, ttl time.Duration) Option {
	return func(d *Driver) {
		d.locker = l
		d.lockKey = key
		d.lockTTL = ttl
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *observability.Recorder) Option {
	return func(d *Driver) {
		d.recorder = r
	}
}

// WithWorker sets the worker executable and an optional launcher prefix.
func WithWorker(path string, launcher ...string) Option {
	return func(d *Driver) {
		d.worker = path
		d.launcher = launcher
	}
}

// WithMountPoint sets where page-memory usage is sampled after the worker exits.
func WithMountPoint(path string) Option {
	return func(d *Driver) {
		d.mountPoint = path
	}
}

// WithIDGenerator replaces the run ID source.
func WithIDGenerator(gen func() string) Option {
	return func(d *Driver) {
		d.newID = gen
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

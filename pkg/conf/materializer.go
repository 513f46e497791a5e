package conf

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/shastarun/internal/logging"
	"github.com/aretw0/shastarun/pkg/domain"
)

const (
	// FileName is the configuration file name, both in the conf dir and in the run directory.
	FileName = "shasta.conf"

	bayesianTemplate = "SimpleBayesianConsensusCaller-1.csv"
	bayesianTarget   = "SimpleBayesianConsensusCaller.csv"
	marginTemplate   = "MarginPhase-allParams.np.json"
	marginTarget     = "MarginPhase.json"
)

// AuxFile is a parameter file copied from the conf dir into a run directory.
type AuxFile struct {
	Template string
	Target   string
}

// Materializer turns the default configuration plus overrides into the files a
// run directory needs.
type Materializer struct {
	confDir string
	logger  *slog.Logger
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Materializer) {
		m.logger = l
	}
}

// NewMaterializer creates a Materializer reading templates from confDir.
func NewMaterializer(confDir string, opts ...Option) *Materializer {
	m := &Materializer{confDir: confDir}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger)
	return m
}

// ConfDir returns the template directory.
func (m *Materializer) ConfDir() string { return m.confDir }

// DefaultPath is the default configuration inside the conf dir.
func (m *Materializer) DefaultPath() string {
	return filepath.Join(m.confDir, FileName)
}

// Materialize loads the default configuration and applies o.
func (m *Materializer) Materialize(o Overrides) (*Configuration, error) {
	cfg, err := Materialize(m.DefaultPath(), o)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("configuration materialized", "path", m.DefaultPath())
	return cfg, nil
}

// Stage writes cfg and its auxiliary files into targetDir.
func (m *Materializer) Stage(cfg *Configuration, targetDir string) error {
	if err := Stage(cfg, m.confDir, targetDir); err != nil {
		return err
	}
	m.logger.Info("configuration staged", "dir", targetDir)
	return nil
}

// Materialize loads the default configuration at defaultPath and applies o.
func Materialize(defaultPath string, o Overrides) (*Configuration, error) {
	cfg, err := Load(defaultPath)
	if err != nil {
		return nil, err
	}
	if err := o.Apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Stage writes shasta.conf into targetDir, freezing cfg, then copies the
// auxiliary parameter files the configuration calls for.
func Stage(cfg *Configuration, confDir, targetDir string) error {
	if err := cfg.Write(filepath.Join(targetDir, FileName)); err != nil {
		return err
	}
	aux, err := AuxFiles(cfg)
	if err != nil {
		return err
	}
	for _, a := range aux {
		if err := copyFile(filepath.Join(confDir, a.Template), filepath.Join(targetDir, a.Target)); err != nil {
			return err
		}
	}
	return nil
}

// AuxFiles lists the parameter files required by cfg.
func AuxFiles(cfg *Configuration) ([]AuxFile, error) {
	var out []AuxFile
	if v, ok := cfg.Get("Assembly", "consensusCaller"); ok && v == "SimpleBayesian"+ConsensusCallerSuffix {
		out = append(out, AuxFile{Template: bayesianTemplate, Target: bayesianTarget})
	}
	if v, ok := cfg.Get("Assembly", "useMarginPhase"); ok && strings.TrimSpace(v) != "" {
		enabled, err := ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("[Assembly] useMarginPhase: %w", err)
		}
		if enabled {
			out = append(out, AuxFile{Template: marginTemplate, Target: marginTarget})
		}
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrMissingTemplate, src)
		}
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

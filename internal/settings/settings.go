// Package settings loads the orchestrator's own settings: where things live,
// how the worker is started and where runs are saved and recorded.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/shastarun/pkg/pagemem"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Persistence modes.
const (
	PersistDirectory = "directory"
	PersistArchive   = "archive"
	PersistObject    = "object"
)

// Ledger modes. An empty mode selects Redis when an address is set and the
// file ledger otherwise.
const (
	LedgerFile   = "file"
	LedgerRedis  = "redis"
	LedgerMemory = "memory"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "shastarun.yaml"

// Settings is the root of the settings file.
type Settings struct {
	// ConfDir holds shasta.conf and the auxiliary templates. Empty means
	// <executable dir>/../conf.
	ConfDir   string `yaml:"confDir" json:"confDir"`
	OutputDir string `yaml:"outputDir" json:"outputDir"`

	Worker      Worker      `yaml:"worker" json:"worker"`
	PageMemory  PageMemory  `yaml:"pageMemory" json:"pageMemory"`
	Persistence Persistence `yaml:"persistence" json:"persistence"`
	Ledger      Ledger      `yaml:"ledger" json:"ledger"`
	Log         Log         `yaml:"log" json:"log"`
}

// Worker describes the assembler executable.
type Worker struct {
	// Executable is resolved next to the orchestrator binary unless absolute.
	Executable string `yaml:"executable" json:"executable"`
	// Launcher is an optional shell-quoted prefix, e.g. "numactl --interleave=all".
	Launcher string `yaml:"launcher" json:"launcher"`
}

// PageMemory locates the huge-page mount.
type PageMemory struct {
	pagemem.Resource `yaml:",inline"`
	// UnmountCommand replaces the unmount system call, e.g. "sudo umount".
	UnmountCommand string `yaml:"unmountCommand" json:"unmountCommand"`
}

// Persistence selects how page memory is saved.
type Persistence struct {
	Mode  string              `yaml:"mode" json:"mode"`
	MinIO pagemem.MinIOConfig `yaml:"minio" json:"minio"`
}

// Ledger selects where runs are recorded. The memory ledger keeps records
// for the lifetime of the process only.
type Ledger struct {
	Mode  string `yaml:"mode" json:"mode"`
	Path  string `yaml:"path" json:"path"`
	Redis Redis  `yaml:"redis" json:"redis"`
}

// Redis holds the Redis ledger connection.
type Redis struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	// LockTTL bounds how long a run may hold the page-memory lock.
	LockTTL time.Duration `yaml:"lockTTL" json:"lockTTL"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the built-in settings.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.OutputDir == "" {
		s.OutputDir = "./output/"
	}
	if s.Worker.Executable == "" {
		s.Worker.Executable = "RunAssembly"
	}
	s.PageMemory.Resource = s.PageMemory.Resource.WithDefaults()
	if s.Persistence.Mode == "" {
		s.Persistence.Mode = PersistDirectory
	}
	if s.Ledger.Mode == "" {
		s.Ledger.Mode = LedgerFile
		if s.Ledger.Redis.Addr != "" {
			s.Ledger.Mode = LedgerRedis
		}
	}
	if s.Ledger.Path == "" {
		s.Ledger.Path = filepath.Join(".shastarun", "runs")
	}
	if s.Ledger.Redis.LockTTL == 0 {
		s.Ledger.Redis.LockTTL = 72 * time.Hour
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if s.Log.Format == "" {
		s.Log.Format = "text"
	}
}

// Validate checks enumerated fields.
func (s *Settings) Validate() error {
	switch s.Persistence.Mode {
	case PersistDirectory, PersistArchive:
	case PersistObject:
		if err := s.Persistence.MinIO.Validate(); err != nil {
			return fmt.Errorf("persistence: %w", err)
		}
	default:
		return fmt.Errorf("unknown persistence mode %q", s.Persistence.Mode)
	}

	switch s.Ledger.Mode {
	case LedgerFile, LedgerMemory:
	case LedgerRedis:
		if s.Ledger.Redis.Addr == "" {
			return fmt.Errorf("ledger: redis mode requires an address")
		}
	default:
		return fmt.Errorf("unknown ledger mode %q", s.Ledger.Mode)
	}
	return nil
}

// Load reads settings from a YAML or JSON file. A missing file yields the
// defaults so that a bare install works without one.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var s Settings
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := decodeJSON(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
		}
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return &s, nil
}

// decodeJSON reads JSON settings with the same duration syntax as YAML
// ("72h"). Integer nanoseconds are still accepted.
func decodeJSON(data []byte, s *Settings) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Squash:     true,
		TagName:    "json",
		Result:     s,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// ResolveConfDir returns ConfDir, or <exeDir>/../conf when it is empty.
func (s *Settings) ResolveConfDir(exeDir string) string {
	if s.ConfDir != "" {
		return s.ConfDir
	}
	return filepath.Join(exeDir, "..", "conf")
}

// ResolveWorker returns the worker path: as configured if absolute, else
// inside exeDir.
func (s *Settings) ResolveWorker(exeDir string) string {
	if filepath.IsAbs(s.Worker.Executable) {
		return s.Worker.Executable
	}
	return filepath.Join(exeDir, s.Worker.Executable)
}

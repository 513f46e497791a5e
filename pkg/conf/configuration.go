package conf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/go-ini/ini"
)

func init() {
	// The worker reads plain key=value lines.
	ini.PrettyFormat = false
}

// loadOptions mirror the worker's parser: no inline comments, case-sensitive keys.
var loadOptions = ini.LoadOptions{
	IgnoreInlineComment: true,
	Insensitive:         false,
}

// Configuration is the merged, section-delimited run configuration.
// Every value is stored as text; typing happens when overrides are applied.
type Configuration struct {
	file   *ini.File
	frozen bool
}

// Load reads the default configuration from path.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", domain.ErrConfigLoad, path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", domain.ErrConfigLoad, path, err)
	}
	return cfg, nil
}

// Parse builds a Configuration from INI text.
func Parse(data []byte) (*Configuration, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, err
	}
	return &Configuration{file: f}, nil
}

// Get returns the value stored under section/key.
func (c *Configuration) Get(section, key string) (string, bool) {
	sec, err := c.file.GetSection(section)
	if err != nil || !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).String(), true
}

// Set replaces an existing value. Unknown sections or keys are rejected so that
// a typo never silently creates a setting the worker ignores.
func (c *Configuration) Set(section, key, value string) error {
	if c.frozen {
		return fmt.Errorf("%w: cannot set [%s] %s", domain.ErrFrozen, section, key)
	}
	sec, err := c.file.GetSection(section)
	if err != nil {
		return fmt.Errorf("%w: section [%s]", domain.ErrUnknownKey, section)
	}
	if !sec.HasKey(key) {
		return fmt.Errorf("%w: [%s] %s", domain.ErrUnknownKey, section, key)
	}
	sec.Key(key).SetValue(value)
	return nil
}

// Sections lists the non-empty section names in file order.
func (c *Configuration) Sections() []string {
	var names []string
	for _, sec := range c.file.Sections() {
		if sec.Name() == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		names = append(names, sec.Name())
	}
	return names
}

// Map returns a copy of the configuration as section -> key -> value.
func (c *Configuration) Map() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, name := range c.Sections() {
		sec := c.file.Section(name)
		values := make(map[string]string, len(sec.Keys()))
		for _, k := range sec.Keys() {
			values[k.Name()] = k.String()
		}
		out[name] = values
	}
	return out
}

// WriteTo serializes the configuration in INI form.
func (c *Configuration) WriteTo(w io.Writer) (int64, error) {
	return c.file.WriteTo(w)
}

// Bytes returns the serialized configuration.
func (c *Configuration) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes the configuration to path and freezes it.
func (c *Configuration) Write(path string) error {
	data, err := c.Bytes()
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", path, err)
	}
	c.frozen = true
	return nil
}

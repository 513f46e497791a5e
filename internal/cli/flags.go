package cli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/shastarun/pkg/conf"
	"github.com/spf13/pflag"
)

// BoolValue is a flag that requires an explicit value in any spelling
// conf.ParseBool accepts, e.g. --savePageMemory yes.
type BoolValue struct {
	value bool
}

// NewBoolValue creates a BoolValue holding def.
func NewBoolValue(def bool) *BoolValue {
	return &BoolValue{value: def}
}

func (b *BoolValue) Set(s string) error {
	v, err := conf.ParseBool(s)
	if err != nil {
		return err
	}
	b.value = v
	return nil
}

func (b *BoolValue) String() string {
	if b == nil {
		return "false"
	}
	return conf.FormatBool(b.value)
}

func (b *BoolValue) Type() string {
	return "bool"
}

// Value returns the parsed value.
func (b *BoolValue) Value() bool {
	return b.value
}

// OverrideFlags registers one flag per configuration override and collects
// those the user set.
type OverrideFlags struct {
	fs    *pflag.FlagSet
	names []string
}

// RegisterOverrideFlags adds the override flags to fs, named like the
// configuration keys they replace.
func RegisterOverrideFlags(fs *pflag.FlagSet) *OverrideFlags {
	of := &OverrideFlags{fs: fs}
	t := reflect.TypeOf(conf.Overrides{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("mapstructure")
		usage := fmt.Sprintf("override %s in %s", name, conf.FileName)

		switch field.Type.Elem().Kind() {
		case reflect.Int:
			fs.Int(name, 0, usage)
		case reflect.Float64:
			fs.Float64(name, 0, usage)
		case reflect.Bool:
			fs.Var(NewBoolValue(false), name, usage)
		case reflect.String:
			fs.String(name, "", fmt.Sprintf("%s (%s)", usage, strings.Join(conf.ConsensusCallers, ", ")))
		default:
			continue
		}
		of.names = append(of.names, name)
	}
	return of
}

// Overrides returns the overrides for the flags that were set.
func (of *OverrideFlags) Overrides() (conf.Overrides, error) {
	raw := map[string]any{}
	for _, name := range of.names {
		if f := of.fs.Lookup(name); f != nil && f.Changed {
			raw[name] = f.Value.String()
		}
	}
	return conf.DecodeOverrides(raw)
}

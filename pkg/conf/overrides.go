package conf

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// ConsensusCallerSuffix is appended to the chosen caller so the worker can
// resolve the implementation by name.
const ConsensusCallerSuffix = "ConsensusCaller"

// ConsensusCallers lists the accepted consensusCaller choices.
var ConsensusCallers = []string{"Simple", "SimpleBayesian", "Median"}

// Overrides holds the optional user overrides. A nil field keeps the default.
type Overrides struct {
	MinReadLength                              *int     `mapstructure:"minReadLength"`
	K                                          *int     `mapstructure:"k"`
	Probability                                *float64 `mapstructure:"probability"`
	M                                          *int     `mapstructure:"m"`
	MinHashIterationCount                      *int     `mapstructure:"minHashIterationCount"`
	MaxBucketSize                              *int     `mapstructure:"maxBucketSize"`
	MinFrequency                               *int     `mapstructure:"minFrequency"`
	MaxSkip                                    *int     `mapstructure:"maxSkip"`
	MaxMarkerFrequency                         *int     `mapstructure:"maxMarkerFrequency"`
	MinAlignedMarkerCount                      *int     `mapstructure:"minAlignedMarkerCount"`
	MaxTrim                                    *int     `mapstructure:"maxTrim"`
	MinComponentSize                           *int     `mapstructure:"minComponentSize"`
	MaxChimericReadDistance                    *int     `mapstructure:"maxChimericReadDistance"`
	MinCoverage                                *int     `mapstructure:"minCoverage"`
	MaxCoverage                                *int     `mapstructure:"maxCoverage"`
	LowCoverageThreshold                       *int     `mapstructure:"lowCoverageThreshold"`
	HighCoverageThreshold                      *int     `mapstructure:"highCoverageThreshold"`
	MaxDistance                                *int     `mapstructure:"maxDistance"`
	PruneIterationCount                        *int     `mapstructure:"pruneIterationCount"`
	MarkerGraphEdgeLengthThresholdForConsensus *int     `mapstructure:"markerGraphEdgeLengthThresholdForConsensus"`
	ConsensusCaller                            *string  `mapstructure:"consensusCaller"`
	UseMarginPhase                             *bool    `mapstructure:"useMarginPhase"`
	StoreCoverageData                          *bool    `mapstructure:"storeCoverageData"`
}

// Entry is one override resolved to its configuration location.
type Entry struct {
	Section string
	Key     string
	Value   string
}

// Entries resolves the set fields to section/key/value triples, in a fixed order.
func (o Overrides) Entries() ([]Entry, error) {
	var out []Entry
	num := func(section, key string, v *int) {
		if v != nil {
			out = append(out, Entry{section, key, strconv.Itoa(*v)})
		}
	}
	flag := func(section, key string, v *bool) {
		if v != nil {
			out = append(out, Entry{section, key, FormatBool(*v)})
		}
	}

	num("Reads", "minReadLength", o.MinReadLength)
	num("Kmers", "k", o.K)
	if o.Probability != nil {
		out = append(out, Entry{"Kmers", "probability", strconv.FormatFloat(*o.Probability, 'g', -1, 64)})
	}
	num("MinHash", "m", o.M)
	num("MinHash", "minHashIterationCount", o.MinHashIterationCount)
	num("MinHash", "maxBucketSize", o.MaxBucketSize)
	num("MinHash", "minFrequency", o.MinFrequency)
	num("Align", "maxSkip", o.MaxSkip)
	num("Align", "maxMarkerFrequency", o.MaxMarkerFrequency)
	num("Align", "minAlignedMarkerCount", o.MinAlignedMarkerCount)
	num("Align", "maxTrim", o.MaxTrim)
	num("ReadGraph", "minComponentSize", o.MinComponentSize)
	num("ReadGraph", "maxChimericReadDistance", o.MaxChimericReadDistance)
	num("MarkerGraph", "minCoverage", o.MinCoverage)
	num("MarkerGraph", "maxCoverage", o.MaxCoverage)
	num("MarkerGraph", "lowCoverageThreshold", o.LowCoverageThreshold)
	num("MarkerGraph", "highCoverageThreshold", o.HighCoverageThreshold)
	num("MarkerGraph", "maxDistance", o.MaxDistance)
	num("MarkerGraph", "pruneIterationCount", o.PruneIterationCount)
	num("Assembly", "markerGraphEdgeLengthThresholdForConsensus", o.MarkerGraphEdgeLengthThresholdForConsensus)
	if o.ConsensusCaller != nil {
		if !slices.Contains(ConsensusCallers, *o.ConsensusCaller) {
			return nil, fmt.Errorf("%w for consensusCaller: %q (choose from %s)",
				domain.ErrInvalidChoice, *o.ConsensusCaller, strings.Join(ConsensusCallers, ", "))
		}
		out = append(out, Entry{"Assembly", "consensusCaller", *o.ConsensusCaller + ConsensusCallerSuffix})
	}
	flag("Assembly", "useMarginPhase", o.UseMarginPhase)
	flag("Assembly", "storeCoverageData", o.StoreCoverageData)

	return out, nil
}

// Apply writes every set override into cfg.
func (o Overrides) Apply(cfg *Configuration) error {
	entries, err := o.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := cfg.Set(e.Section, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Merge returns base with every field set in top taking precedence.
func Merge(base, top Overrides) Overrides {
	out := base
	bv := reflect.ValueOf(&out).Elem()
	tv := reflect.ValueOf(top)
	for i := 0; i < tv.NumField(); i++ {
		if f := tv.Field(i); !f.IsNil() {
			bv.Field(i).Set(f)
		}
	}
	return out
}

// DecodeOverrides converts a loosely typed map (from YAML, JSON or flags) into
// Overrides. Numeric and boolean strings are parsed for their fields; whole
// floats are accepted for integer fields. Anything else that does not match
// the field type, and any unknown name, is rejected.
func DecodeOverrides(raw map[string]any) (Overrides, error) {
	var o Overrides
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  overrideHook,
		ErrorUnused: true,
		Result:      &o,
	})
	if err != nil {
		return Overrides{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Overrides{}, fmt.Errorf("%w: %w", domain.ErrInvalidOverride, err)
	}
	return o, nil
}

// overrideHook converts strings to the scalar field types and guards integer
// fields against truncation, which mapstructure would otherwise apply to floats.
func overrideHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() == reflect.Ptr {
		to = to.Elem()
	}

	switch from.Kind() {
	case reflect.String:
		str := strings.TrimSpace(data.(string))
		switch to.Kind() {
		case reflect.Int:
			return strconv.Atoi(str)
		case reflect.Float64:
			return strconv.ParseFloat(str, 64)
		case reflect.Bool:
			return ParseBool(str)
		}
	case reflect.Float32, reflect.Float64:
		if to.Kind() == reflect.Int {
			f := reflect.ValueOf(data).Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%v is not an integer", f)
			}
			return int(f), nil
		}
	}
	return data, nil
}

package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func loadDefault(t *testing.T) *Configuration {
	t.Helper()
	cfg, err := Load(filepath.Join("testdata", FileName))
	require.NoError(t, err)
	return cfg
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.conf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigLoad)
	assert.Contains(t, err.Error(), "nope.conf")
}

func TestConfiguration_SetUnknown(t *testing.T) {
	cfg := loadDefault(t)

	err := cfg.Set("Kmers", "kk", "3")
	assert.ErrorIs(t, err, domain.ErrUnknownKey)

	err = cfg.Set("Nowhere", "k", "3")
	assert.ErrorIs(t, err, domain.ErrUnknownKey)
}

func TestConfiguration_FrozenAfterWrite(t *testing.T) {
	cfg := loadDefault(t)
	require.NoError(t, cfg.Write(filepath.Join(t.TempDir(), FileName)))

	err := cfg.Set("Kmers", "k", "12")
	assert.ErrorIs(t, err, domain.ErrFrozen)
}

func TestConfiguration_SectionsKeepFileOrder(t *testing.T) {
	cfg := loadDefault(t)
	assert.Equal(t,
		[]string{"Reads", "Kmers", "MinHash", "Align", "ReadGraph", "MarkerGraph", "Assembly"},
		cfg.Sections())
}

func TestOverrides_RoundTrip(t *testing.T) {
	cases := map[string]Overrides{
		"none":    {},
		"kmers":   {K: ptr(15), Probability: ptr(0.25)},
		"caller":  {ConsensusCaller: ptr("Median"), StoreCoverageData: ptr(true)},
		"graph":   {MinCoverage: ptr(3), MaxCoverage: ptr(60), PruneIterationCount: ptr(2)},
		"reads":   {MinReadLength: ptr(5000), MaxTrim: ptr(10), MaxSkip: ptr(40)},
		"phasing": {UseMarginPhase: ptr(false), MarkerGraphEdgeLengthThresholdForConsensus: ptr(1000)},
	}

	for name, o := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Materialize(filepath.Join("testdata", FileName), o)
			require.NoError(t, err)

			out := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, cfg.Write(out))

			reread, err := Load(out)
			require.NoError(t, err)
			assert.Equal(t, cfg.Map(), reread.Map())

			entries, err := o.Entries()
			require.NoError(t, err)
			for _, e := range entries {
				v, ok := reread.Get(e.Section, e.Key)
				require.True(t, ok, "%s/%s", e.Section, e.Key)
				assert.Equal(t, e.Value, v)
			}
		})
	}
}

func TestOverrides_WrittenAsKeyValue(t *testing.T) {
	cfg, err := Materialize(filepath.Join("testdata", FileName), Overrides{K: ptr(15)})
	require.NoError(t, err)

	data, err := cfg.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Kmers]\nk=15\n")
}

func TestOverrides_ValueFormatting(t *testing.T) {
	entries, err := Overrides{
		Probability:     ptr(0.1),
		UseMarginPhase:  ptr(true),
		ConsensusCaller: ptr("Simple"),
	}.Entries()
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{"Kmers", "probability", "0.1"},
		{"Assembly", "consensusCaller", "SimpleConsensusCaller"},
		{"Assembly", "useMarginPhase", "True"},
	}, entries)
}

func TestOverrides_InvalidChoice(t *testing.T) {
	_, err := Overrides{ConsensusCaller: ptr("Modal")}.Entries()
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)
}

func TestMerge_TopWins(t *testing.T) {
	base := Overrides{K: ptr(12), M: ptr(3)}
	top := Overrides{K: ptr(15), UseMarginPhase: ptr(true)}

	got := Merge(base, top)
	assert.Equal(t, 15, *got.K)
	assert.Equal(t, 3, *got.M)
	assert.True(t, *got.UseMarginPhase)
	assert.Equal(t, 12, *base.K)
}

func TestStage_BayesianScenario(t *testing.T) {
	m := NewMaterializer("testdata")
	cfg, err := m.Materialize(Overrides{K: ptr(15), ConsensusCaller: ptr("SimpleBayesian")})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, m.Stage(cfg, dir))

	written, err := Load(filepath.Join(dir, FileName))
	require.NoError(t, err)
	k, _ := written.Get("Kmers", "k")
	assert.Equal(t, "15", k)
	caller, _ := written.Get("Assembly", "consensusCaller")
	assert.Equal(t, "SimpleBayesianConsensusCaller", caller)

	want, err := os.ReadFile(filepath.Join("testdata", bayesianTemplate))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, bayesianTarget))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.NoFileExists(t, filepath.Join(dir, marginTarget))
	assert.FileExists(t, filepath.Join("testdata", bayesianTemplate))
}

func TestStage_MarginPhase(t *testing.T) {
	m := NewMaterializer("testdata")
	cfg, err := m.Materialize(Overrides{UseMarginPhase: ptr(true)})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, m.Stage(cfg, dir))

	assert.FileExists(t, filepath.Join(dir, marginTarget))
	assert.NoFileExists(t, filepath.Join(dir, bayesianTarget))
}

func TestStage_DefaultsCopyNothing(t *testing.T) {
	m := NewMaterializer("testdata")
	cfg, err := m.Materialize(Overrides{})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, m.Stage(cfg, dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestStage_MissingTemplate(t *testing.T) {
	confDir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("testdata", FileName))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(confDir, FileName), data, 0o644))

	m := NewMaterializer(confDir)
	cfg, err := m.Materialize(Overrides{ConsensusCaller: ptr("SimpleBayesian")})
	require.NoError(t, err)

	err = m.Stage(cfg, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrMissingTemplate)
	assert.Contains(t, err.Error(), bayesianTemplate)
}

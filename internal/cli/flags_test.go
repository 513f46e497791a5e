package cli

import (
	"testing"

	"github.com/aretw0/shastarun/pkg/domain"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolValue(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	save := NewBoolValue(false)
	cleanup := NewBoolValue(true)
	fs.Var(save, "savePageMemory", "")
	fs.Var(cleanup, "performPageCleanUp", "")

	require.NoError(t, fs.Parse([]string{"--savePageMemory", "Y", "--performPageCleanUp=no"}))
	assert.True(t, save.Value())
	assert.False(t, cleanup.Value())

	err := fs.Parse([]string{"--savePageMemory", "sometimes"})
	assert.ErrorContains(t, err, domain.ErrInvalidBool.Error())
}

func TestOverrideFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	of := RegisterOverrideFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--k", "15",
		"--probability", "0.2",
		"--consensusCaller", "SimpleBayesian",
		"--useMarginPhase", "TRUE",
	}))

	o, err := of.Overrides()
	require.NoError(t, err)
	assert.Equal(t, 15, *o.K)
	assert.InDelta(t, 0.2, *o.Probability, 1e-9)
	assert.Equal(t, "SimpleBayesian", *o.ConsensusCaller)
	assert.True(t, *o.UseMarginPhase)
	assert.Nil(t, o.M, "unset flags leave defaults alone")
	assert.Nil(t, o.StoreCoverageData)
}

func TestOverrideFlags_Typed(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterOverrideFlags(fs)

	assert.Error(t, fs.Parse([]string{"--minCoverage", "lots"}))
	assert.ErrorContains(t, fs.Parse([]string{"--storeCoverageData", "perhaps"}), domain.ErrInvalidBool.Error())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(domain.ErrInvalidBool))
	assert.Equal(t, 2, ExitCode(UsageError(assert.AnError)))
	assert.Equal(t, 130, ExitCode(domain.ErrInterrupted))
	assert.Equal(t, 1, ExitCode(domain.ErrConfigLoad))
	assert.Equal(t, 1, ExitCode(assert.AnError))
}

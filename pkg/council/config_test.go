package council

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_PassesValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate_RejectsUnknownOutputMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputMode = "nonsense"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestConfig_Validate_RejectsUnknownAggregationMethod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AggregationMethod = "nonsense"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestConfig_Validate_RejectsNegativeJudgeConcurrency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JudgeConcurrency = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestConfig_JudgeConcurrency_DefaultsWhenUnset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JudgeConcurrency = 0
	assert.Equal(t, 16, cfg.judgeConcurrency())

	cfg.JudgeConcurrency = 4
	assert.Equal(t, 4, cfg.judgeConcurrency())
}

func TestParseOutputMode_RoundTrips(t *testing.T) {
	m, err := ParseOutputMode("both")
	require.NoError(t, err)
	assert.Equal(t, OutputBoth, m)

	_, err = ParseOutputMode("invalid")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParseAggregationMethod_RoundTrips(t *testing.T) {
	m, err := ParseAggregationMethod("elo")
	require.NoError(t, err)
	assert.Equal(t, MethodElo, m)

	_, err = ParseAggregationMethod("invalid")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

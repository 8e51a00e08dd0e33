package results

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/council/pkg/council"
)

func TestWriteJSON(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "output.json")

	require.NoError(t, WriteJSON(outputPath, sampleOutput()))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var decoded council.DeliberationOutput
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "should we ship the migration this sprint?", decoded.Task)
	assert.Equal(t, "ship with a staged rollout", decoded.Synthesis)
	assert.Len(t, decoded.Results, 2)
	assert.Contains(t, decoded.AggregationScores, council.MethodBorda)
}

func TestWriteJSONL(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "results.jsonl")

	require.NoError(t, WriteJSONL(outputPath, sampleOutput()))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineCount := 0

	for scanner.Scan() {
		lineCount++
		var line RoleLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		assert.NotEmpty(t, line.RoleName)
		assert.False(t, line.Timestamp.IsZero())
	}

	require.NoError(t, scanner.Err())
	assert.Equal(t, 2, lineCount)
}

func TestWriteJSONL_EmptyResults(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "empty.jsonl")

	output := &council.DeliberationOutput{Task: "nothing to report"}
	require.NoError(t, WriteJSONL(outputPath, output))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestWriteJSONL_InvalidPath(t *testing.T) {
	err := WriteJSONL("/nonexistent/directory/results.jsonl", &council.DeliberationOutput{})
	assert.Error(t, err)
}

func TestWriteJSONL_SuccessField(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "success.jsonl")

	output := &council.DeliberationOutput{
		Task: "two roles, one failure",
		Results: []council.RoleResult{
			{RoleName: "a", Model: "gpt-4", Content: "fine"},
			{RoleName: "b", Model: "gpt-4", Error: "timed out"},
		},
	}

	require.NoError(t, WriteJSONL(outputPath, output))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer file.Close()

	scanner := bufio.NewScanner(file)

	scanner.Scan()
	var first RoleLine
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &first))
	assert.True(t, first.Success)

	scanner.Scan()
	var second RoleLine
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &second))
	assert.False(t, second.Success)
	assert.Equal(t, "timed out", second.Error)
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorOverwritesByResponseKey(t *testing.T) {
	acc := NewResponseAccumulator()
	entry := textEntry("e1", "name")

	acc.Record(entry, textValue("Ada"))
	acc.Record(entry, textValue("Grace"))

	resp, ok := acc.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Grace", resp.Value.Text)
	assert.Equal(t, 1, acc.Len())
}

func TestAccumulatorSnapshotIsIsolated(t *testing.T) {
	acc := NewResponseAccumulator()
	entry := textEntry("e1", "name")
	acc.Record(entry, textValue("Ada"))

	snap := acc.Snapshot()
	acc.Record(entry, textValue("Grace"))

	assert.Equal(t, "Ada", snap["name"].Value.Text)
}

package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetTableSet(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		value   int
		wantErr bool
	}{
		{"reference stream rejected", 0, 1, true},
		{"reference stream rejected even for zero", 0, 0, true},
		{"negative index rejected", -1, 5, true},
		{"unknown stream rejected", 7, 5, true},
		{"value above bound rejected", 1, MaxOffset + 1, true},
		{"value below bound rejected", 1, -MaxOffset - 1, true},
		{"max bound accepted", 1, MaxOffset, false},
		{"min bound accepted", 2, -MaxOffset, false},
		{"plain value accepted", 1, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewOffsetTable(3)
			err := table.Set(tt.index, tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOffsetRange)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.value, table.Get(tt.index))
			}
		})
	}
}

func TestOffsetTableRejectedEditLeavesStateUnchanged(t *testing.T) {
	table := NewOffsetTable(2)
	require.NoError(t, table.Set(1, 10))
	require.Error(t, table.Set(1, MaxOffset+1))
	assert.Equal(t, 10, table.Get(1))
}

func TestOffsetTableGetDefaultsToZero(t *testing.T) {
	table := NewOffsetTable(2)
	assert.Equal(t, 0, table.Get(1))
	assert.Equal(t, 0, table.Get(99))
	assert.Equal(t, 0, table.Get(-1))
}

func TestOffsetTableSnapshotIsACopy(t *testing.T) {
	table := NewOffsetTable(3)
	require.NoError(t, table.Set(2, -4))

	snap := table.Snapshot()
	assert.Equal(t, []int{0, 0, -4}, snap)

	snap[2] = 99
	assert.Equal(t, -4, table.Get(2))
}

func TestOffsetTableReset(t *testing.T) {
	table := NewOffsetTable(2)
	require.NoError(t, table.Set(1, 12))

	table.Reset(4)
	assert.Equal(t, []int{0, 0, 0, 0}, table.Snapshot())
}

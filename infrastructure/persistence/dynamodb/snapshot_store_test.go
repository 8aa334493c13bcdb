package dynamodb

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSortKeyOrdersChronologically(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	// Whole-second and sub-second captures from the same second must sort
	// in capture order. A trimmed-zeros timestamp would put the shorter
	// whole-second key after the longer sub-second one.
	whole := snapshotSortKey(base, "snap-a")
	subSecond := snapshotSortKey(base.Add(500*time.Millisecond), "snap-b")
	nextSecond := snapshotSortKey(base.Add(time.Second), "snap-c")

	keys := []string{nextSecond, subSecond, whole}
	sort.Strings(keys)
	assert.Equal(t, []string{whole, subSecond, nextSecond}, keys)
}

func TestSnapshotSortKeyTimestampIsFixedWidth(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		time.Date(2026, 1, 2, 3, 4, 5, 120000000, time.UTC),
		time.Date(2026, 1, 2, 3, 4, 5, 999999999, time.UTC),
	}
	for _, captured := range times {
		formatted := captured.Format(sortKeyTimeFormat)
		assert.Len(t, formatted, len("2026-01-02T03:04:05.000000000Z"))

		parsed, err := time.Parse(time.RFC3339Nano, formatted)
		require.NoError(t, err)
		assert.True(t, parsed.Equal(captured))
	}
}

func TestSnapshotRangeBoundsIncludeSubSecondCaptures(t *testing.T) {
	from := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	inWindow := from.Add(250 * time.Millisecond)

	lower := "SNAPSHOT#" + from.UTC().Format(sortKeyTimeFormat)
	key := snapshotSortKey(inWindow, "snap-a")

	// A second-aligned lower bound must not exclude captures taken later
	// within that same second.
	assert.LessOrEqual(t, lower, key)
}

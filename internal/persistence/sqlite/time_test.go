package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeSortsLexically(t *testing.T) {
	base := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	earlier := formatTime(base)
	later := formatTime(base.Add(time.Nanosecond))

	assert.Len(t, earlier, len(later))
	assert.Less(t, earlier, later)

	berlin := time.FixedZone("CEST", 2*60*60)
	assert.Equal(t, earlier, formatTime(base.In(berlin)))

	parsed, err := parseTime(later)
	require.NoError(t, err)
	assert.True(t, base.Add(time.Nanosecond).Equal(parsed))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestOrderedPair(t *testing.T) {
	low, high := orderedPair("bob", "alice")
	assert.Equal(t, "alice", low)
	assert.Equal(t, "bob", high)
}

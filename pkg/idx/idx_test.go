package idx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/campus/pkg/idx"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNewIsAValidULID(t *testing.T) {
	id := idx.New()

	_, err := ulid.ParseStrict(id.String())
	require.NoError(t, err)
}

func TestNewAtEmbedsTimestamp(t *testing.T) {
	at := time.UnixMilli(1700000000123).UTC()
	parsed, err := ulid.ParseStrict(idx.NewAt(at).String())
	require.NoError(t, err)
	require.Equal(t, at, ulid.Time(parsed.Time()).UTC())
}

func TestIDsSortByMintTime(t *testing.T) {
	older := idx.NewAt(time.Unix(1, 0).UTC())
	newer := idx.NewAt(time.Unix(2, 0).UTC())
	require.Less(t, older.String(), newer.String())
}

func TestSameMillisecondStaysOrdered(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()
	prev := idx.NewAt(at)
	for range 50 {
		next := idx.NewAt(at)
		require.Less(t, prev.String(), next.String())
		prev = next
	}
}

package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, time.October, 27, 9, 30, 15, 123456789, time.FixedZone("CET", 3600))
	token := EncodeCursor(&Cursor{Timestamp: ts, ID: "rec-1"})

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.True(t, ts.Equal(decoded.Timestamp))
	require.Equal(t, "rec-1", decoded.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = DecodeCursor("%%%")
	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeCursor(base64.StdEncoding.EncodeToString([]byte("no-separator")))
	require.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursorBefore(t *testing.T) {
	ts := time.Date(2025, time.October, 27, 9, 0, 0, 0, time.UTC)
	c := Cursor{Timestamp: ts, ID: "m"}

	require.True(t, c.Before(ts.Add(-time.Second), "z"))
	require.True(t, c.Before(ts, "a"))
	require.False(t, c.Before(ts, "m"))
	require.False(t, c.Before(ts.Add(time.Second), "a"))
}

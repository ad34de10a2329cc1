/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/log"
)

func TestRecorder(t *testing.T) {
	recorder := NewRecorder()

	recorder.Info("entry added", log.String("key", "app:notes:1"))
	recorder.With(log.String("cache", "notes")).Warnf("evicted %d entries", 2)
	recorder.Debug("debug message")

	entries := recorder.Entries()
	require.Len(t, entries, 3)

	entry, found := recorder.FindEntry("entry added")
	require.True(t, found)
	require.Equal(t, log.LevelInfo, entry.Level)
	field, found := entry.FindField("key")
	require.True(t, found)
	require.Equal(t, "app:notes:1", string(field.Bytes))

	entry, found = recorder.FindEntry("evicted 2 entries")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
	field, found = entry.FindField("cache")
	require.True(t, found)
	require.Equal(t, "notes", string(field.Bytes))

	debugEntries := recorder.FindAllEntries(func(e RecordedEntry) bool { return e.Level == log.LevelDebug })
	require.Len(t, debugEntries, 1)

	_, found = recorder.FindEntry("unknown")
	require.False(t, found)

	recorder.Reset()
	require.Empty(t, recorder.Entries())
}

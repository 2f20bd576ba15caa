package ingestlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flateze/flateze/internal/ingest"
)

var testTime = time.Date(2024, 8, 21, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return FromReport(testTime, ingest.Report{
		FlatID:        "flat-1",
		Since:         testTime.Add(-24 * time.Hour),
		Seen:          5,
		Parsed:        4,
		Created:       3,
		Duplicates:    1,
		ParseFailures: 1,
	}, nil)
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])

	data, err := os.ReadFile(filepath.Join(dir, logFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Header+"\n"))
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	failed := FromReport(testTime, ingest.Report{FlatID: "flat-2", Since: testTime}, errors.New("mailbox fault: connecting: timeout"))
	require.NoError(t, Append(dir, []Entry{failed}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "flat-1", entries[0].FlatID)
	assert.Equal(t, "mailbox fault: connecting: timeout", entries[1].Error)
}

func TestAppend_Concurrent(t *testing.T) {
	dir := t.TempDir()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, Append(dir, []Entry{testEntry()}))
		}()
	}
	wg.Wait()

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 10)
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	good := MarshalEntry(testEntry())

	bad := append([]string(nil), good...)
	bad[colTimestamp] = "yesterday"
	_, err := UnmarshalEntry(bad)
	assert.Error(t, err)

	bad = append([]string(nil), good...)
	bad[colCreated] = "three"
	_, err = UnmarshalEntry(bad)
	assert.Error(t, err)

	_, err = UnmarshalEntry(good[:2])
	assert.Error(t, err)
}

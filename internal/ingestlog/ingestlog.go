// Package ingestlog keeps a CSV audit trail of ingestion runs.
package ingestlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flateze/flateze/internal/ingest"
)

// Entry is one row in the ingest log.
type Entry struct {
	Timestamp       time.Time
	FlatID          string
	Since           time.Time
	Seen            int
	Parsed          int
	Created         int
	Duplicates      int
	ParseFailures   int
	Unrecognized    int
	PersistFailures int
	Error           string
}

// FromReport builds the log entry for one run.
func FromReport(ts time.Time, rep ingest.Report, runErr error) Entry {
	e := Entry{
		Timestamp:       ts,
		FlatID:          rep.FlatID,
		Since:           rep.Since,
		Seen:            rep.Seen,
		Parsed:          rep.Parsed,
		Created:         rep.Created,
		Duplicates:      rep.Duplicates,
		ParseFailures:   rep.ParseFailures,
		Unrecognized:    rep.Unrecognized,
		PersistFailures: rep.PersistFailures,
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	return e
}

// Header is the CSV header for ingest-log.csv.
const Header = "timestamp,flat_id,since,seen,parsed,created,duplicates,parse_failures,unrecognized,persist_failures,error"

const (
	numFields      = 11
	logDir         = "logs"
	logFile        = "logs/ingest-log.csv"
	colTimestamp   = 0
	colFlat        = 1
	colSince       = 2
	colSeen        = 3
	colParsed      = 4
	colCreated     = 5
	colDuplicates  = 6
	colParseFail   = 7
	colUnrecog     = 8
	colPersistFail = 9
	colError       = 10
)

var appendMu sync.Mutex

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colFlat] = e.FlatID
	row[colSince] = e.Since.UTC().Format(time.RFC3339)
	row[colSeen] = strconv.Itoa(e.Seen)
	row[colParsed] = strconv.Itoa(e.Parsed)
	row[colCreated] = strconv.Itoa(e.Created)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colParseFail] = strconv.Itoa(e.ParseFailures)
	row[colUnrecog] = strconv.Itoa(e.Unrecognized)
	row[colPersistFail] = strconv.Itoa(e.PersistFailures)
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	since, err := time.Parse(time.RFC3339, record[colSince])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing since %q: %w", record[colSince], err)
	}

	e := Entry{Timestamp: ts, FlatID: record[colFlat], Since: since, Error: record[colError]}
	counts := []struct {
		col int
		dst *int
	}{
		{colSeen, &e.Seen},
		{colParsed, &e.Parsed},
		{colCreated, &e.Created},
		{colDuplicates, &e.Duplicates},
		{colParseFail, &e.ParseFailures},
		{colUnrecog, &e.Unrecognized},
		{colPersistFail, &e.PersistFailures},
	}
	for _, c := range counts {
		n, err := strconv.Atoi(record[c.col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[c.col], err)
		}
		*c.dst = n
	}
	return e, nil
}

// Append writes entries to <root>/logs/ingest-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	appendMu.Lock()
	defer appendMu.Unlock()

	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ingest log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/ingest-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ingest log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ingest log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

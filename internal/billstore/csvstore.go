package billstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flateze/flateze/internal/model"
)

// CSVStore keeps one bills.csv per flat under a root directory.
type CSVStore struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// NewCSVStore creates a store rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir, now: time.Now}
}

// FindDuplicate scans the flat's bills for key.
func (s *CSVStore) FindDuplicate(ctx context.Context, key model.DedupeKey) (*model.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(key)
}

// CreateBill appends bill to the flat's file. The duplicate check and the
// append happen under the same lock.
func (s *CSVStore) CreateBill(ctx context.Context, bill model.Bill) (*model.Bill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bill.FlatID == "" || bill.FlatID != filepath.Base(bill.FlatID) {
		return nil, fmt.Errorf("invalid flat id %q", bill.FlatID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.findLocked(bill.Key())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicate
	}

	bill.ID = uuid.NewString()
	bill.CreatedAt = s.now().UTC().Truncate(time.Second)

	path := s.flatPath(bill.FlatID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating bills dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening bills: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}
	if err := AppendBills(f, []model.Bill{bill}); err != nil {
		return nil, fmt.Errorf("appending bill: %w", err)
	}
	return &bill, nil
}

// List returns every bill stored for flatID in insertion order.
func (s *CSVStore) List(flatID string) ([]model.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readFlat(flatID)
}

func (s *CSVStore) findLocked(key model.DedupeKey) (*model.Bill, error) {
	bills, err := s.readFlat(key.FlatID)
	if err != nil {
		return nil, err
	}
	for i := range bills {
		if bills[i].Key().Equal(key) {
			return &bills[i], nil
		}
	}
	return nil, nil
}

func (s *CSVStore) readFlat(flatID string) ([]model.Bill, error) {
	path := s.flatPath(flatID)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening bills %s: %w", path, err)
	}
	defer f.Close()

	bills, err := ReadBills(f)
	if err != nil {
		return nil, fmt.Errorf("reading bills %s: %w", path, err)
	}
	return bills, nil
}

func (s *CSVStore) flatPath(flatID string) string {
	return filepath.Join(s.dir, flatID, "bills.csv")
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flateze/flateze/internal/mailbox"
	"github.com/flateze/flateze/internal/model"
)

type fakeMessage struct {
	ref mailbox.MessageRef
	raw string
}

type fakeMailbox struct {
	msgs      []fakeMessage
	searchErr error
	fetchErr  map[string]error
	closed    int
}

func (m *fakeMailbox) SearchSince(_ context.Context, since time.Time) ([]mailbox.MessageRef, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var refs []mailbox.MessageRef
	for _, msg := range m.msgs {
		if !msg.ref.ReceivedAt.Before(since) {
			refs = append(refs, msg.ref)
		}
	}
	return refs, nil
}

func (m *fakeMailbox) Fetch(_ context.Context, ref mailbox.MessageRef) ([]byte, error) {
	if err := m.fetchErr[ref.ID]; err != nil {
		return nil, err
	}
	for _, msg := range m.msgs {
		if msg.ref.ID == ref.ID {
			return []byte(msg.raw), nil
		}
	}
	return nil, fmt.Errorf("no message %s", ref.ID)
}

func (m *fakeMailbox) Close() error {
	m.closed++
	return nil
}

type fakeDialer struct {
	mb      *fakeMailbox
	dialErr error
}

func (d *fakeDialer) Dial(context.Context) (mailbox.Mailbox, error) {
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.mb, nil
}

// failingStore fails CreateBill for the listed companies and delegates the rest.
type failingStore struct {
	next interface {
		FindDuplicate(context.Context, model.DedupeKey) (*model.Bill, error)
		CreateBill(context.Context, model.Bill) (*model.Bill, error)
	}
	failCompany string
}

func (s *failingStore) FindDuplicate(ctx context.Context, key model.DedupeKey) (*model.Bill, error) {
	return s.next.FindDuplicate(ctx, key)
}

func (s *failingStore) CreateBill(ctx context.Context, b model.Bill) (*model.Bill, error) {
	if b.Company == s.failCompany {
		return nil, errors.New("connection reset")
	}
	return s.next.CreateBill(ctx, b)
}

type recordingNotifier struct {
	mu    sync.Mutex
	bills []model.Bill
	err   error
}

func (n *recordingNotifier) BillCreated(_ context.Context, b model.Bill) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bills = append(n.bills, b)
	return n.err
}

func rawMail(subject, body string, date time.Time) string {
	return "From: billing@example.co.nz\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: " + date.Format(time.RFC1123Z) + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n"
}

const malformedMail = "this header has no separator\r\nneither does this one\r\n\r\nAmount: $10.00\r\n"

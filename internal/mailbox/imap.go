package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// DefaultMailbox is selected when IMAPDialer.Mailbox is empty.
const DefaultMailbox = "INBOX"

// IMAPDialer connects to an IMAP server with username/password login.
type IMAPDialer struct {
	Addr     string // host:port
	Username string
	Password string
	TLS      bool
	Mailbox  string
	// InsecureSkipVerify disables certificate checks. Tests only.
	InsecureSkipVerify bool
}

// Dial connects, logs in and selects the mailbox read-only.
func (d IMAPDialer) Dial(ctx context.Context) (Mailbox, error) {
	c, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	if err := c.Login(d.Username, d.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap login as %s: %w", d.Username, err)
	}

	name := d.Mailbox
	if name == "" {
		name = DefaultMailbox
	}
	if _, err := c.Select(name, true); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("selecting %s: %w", name, err)
	}
	return &imapMailbox{c: c}, nil
}

func (d IMAPDialer) connect(ctx context.Context) (*client.Client, error) {
	type result struct {
		c   *client.Client
		err error
	}
	ch := make(chan result, 1)
	go func() {
		var r result
		if d.TLS {
			r.c, r.err = client.DialTLS(d.Addr, &tls.Config{InsecureSkipVerify: d.InsecureSkipVerify}) //nolint:gosec
		} else {
			r.c, r.err = client.Dial(d.Addr)
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", d.Addr, r.err)
		}
		return r.c, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.c != nil {
				_ = r.c.Terminate()
			}
		}()
		return nil, ctx.Err()
	}
}

type imapMailbox struct {
	c *client.Client
}

// SearchSince issues UID SEARCH SINCE, which is day-granular and read in the
// server's timezone, for the day before since. The result is then trimmed to
// the exact instant using each message's internal date.
func (m *imapMailbox) SearchSince(ctx context.Context, since time.Time) ([]MessageRef, error) {
	stop := context.AfterFunc(ctx, func() { _ = m.c.Terminate() })
	defer stop()

	criteria := imap.NewSearchCriteria()
	criteria.Since = since.AddDate(0, 0, -1)
	uids, err := m.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching since %s: %w", since.Format(time.RFC3339), err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate}

	msgs := make(chan *imap.Message, len(uids))
	if err := m.c.UidFetch(seqset, items, msgs); err != nil {
		return nil, fmt.Errorf("fetching dates: %w", err)
	}

	var found []*imap.Message
	for msg := range msgs {
		if !msg.InternalDate.Before(since) {
			found = append(found, msg)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Uid < found[j].Uid })

	refs := make([]MessageRef, 0, len(found))
	for _, msg := range found {
		refs = append(refs, MessageRef{
			ID:         strconv.FormatUint(uint64(msg.Uid), 10),
			ReceivedAt: msg.InternalDate,
		})
	}
	return refs, ctx.Err()
}

func (m *imapMailbox) Fetch(ctx context.Context, ref MessageRef) ([]byte, error) {
	uid, err := strconv.ParseUint(ref.ID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid uid %q: %w", ref.ID, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = m.c.Terminate() })
	defer stop()

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	msgs := make(chan *imap.Message, 1)
	if err := m.c.UidFetch(seqset, items, msgs); err != nil {
		return nil, fmt.Errorf("fetching uid %d: %w", uid, err)
	}

	var raw []byte
	for msg := range msgs {
		lit := msg.GetBody(section)
		if lit == nil {
			continue
		}
		if raw, err = io.ReadAll(lit); err != nil {
			return nil, fmt.Errorf("reading uid %d: %w", uid, err)
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("uid %d: no body returned", uid)
	}
	return raw, nil
}

func (m *imapMailbox) Close() error {
	if err := m.c.Logout(); err != nil {
		return fmt.Errorf("imap logout: %w", err)
	}
	return nil
}

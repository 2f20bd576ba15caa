package mailbox

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mercuryRaw = "Subject: Your Mercury Energy Bill\r\n" +
	"Date: Tue, 20 Aug 2024 09:30:00 +1200\r\n" +
	"\r\n" +
	"Amount: $145.50\r\n"

// startIMAP serves the in-memory backend (user "username", password "password").
func startIMAP(t *testing.T) string {
	t.Helper()
	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })
	return l.Addr().String()
}

func appendMessage(t *testing.T, addr, raw string, date time.Time) {
	t.Helper()
	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Logout()
	require.NoError(t, c.Login("username", "password"))
	require.NoError(t, c.Append(DefaultMailbox, nil, date, bytes.NewBufferString(raw)))
}

func TestIMAPDialer_SearchAndFetch(t *testing.T) {
	addr := startIMAP(t)
	received := time.Date(2024, 8, 19, 21, 30, 0, 0, time.UTC)
	appendMessage(t, addr, mercuryRaw, received)

	d := IMAPDialer{Addr: addr, Username: "username", Password: "password"}
	mb, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer mb.Close()

	refs, err := mb.SearchSince(context.Background(), received.Add(-time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, refs)

	var found bool
	for _, ref := range refs {
		if !ref.ReceivedAt.Equal(received) {
			continue
		}
		found = true
		raw, err := mb.Fetch(context.Background(), ref)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "Amount: $145.50")
	}
	assert.True(t, found, "appended message not returned by search")
}

func TestIMAPDialer_ExcludesOlderMessages(t *testing.T) {
	addr := startIMAP(t)
	appendMessage(t, addr, mercuryRaw, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))

	mb, err := IMAPDialer{Addr: addr, Username: "username", Password: "password"}.Dial(context.Background())
	require.NoError(t, err)
	defer mb.Close()

	refs, err := mb.SearchSince(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	for _, ref := range refs {
		assert.False(t, ref.ReceivedAt.Year() == 2020)
	}
}

func TestIMAPDialer_TrimsToExactInstant(t *testing.T) {
	addr := startIMAP(t)
	since := time.Date(2024, 8, 20, 0, 30, 0, 0, time.UTC)
	before := since.Add(-10 * time.Minute)
	after := since.Add(10 * time.Minute)
	appendMessage(t, addr, mercuryRaw, before)
	appendMessage(t, addr, mercuryRaw, after)

	mb, err := IMAPDialer{Addr: addr, Username: "username", Password: "password"}.Dial(context.Background())
	require.NoError(t, err)
	defer mb.Close()

	refs, err := mb.SearchSince(context.Background(), since)
	require.NoError(t, err)

	var sawAfter bool
	for _, ref := range refs {
		assert.False(t, ref.ReceivedAt.Before(since), "message at %s is older than since", ref.ReceivedAt)
		if ref.ReceivedAt.Equal(after) {
			sawAfter = true
		}
	}
	assert.True(t, sawAfter, "message received after since not returned")
}

func TestIMAPDialer_BadLogin(t *testing.T) {
	addr := startIMAP(t)
	_, err := IMAPDialer{Addr: addr, Username: "username", Password: "wrong"}.Dial(context.Background())
	assert.Error(t, err)
}

func TestIMAPDialer_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = IMAPDialer{Addr: addr}.Dial(context.Background())
	assert.Error(t, err)
}

func TestIMAPMailbox_FetchInvalidID(t *testing.T) {
	addr := startIMAP(t)
	mb, err := IMAPDialer{Addr: addr, Username: "username", Password: "password"}.Dial(context.Background())
	require.NoError(t, err)
	defer mb.Close()

	_, err = mb.Fetch(context.Background(), MessageRef{ID: "not-a-uid"})
	assert.Error(t, err)
}

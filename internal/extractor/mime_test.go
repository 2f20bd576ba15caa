package extractor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_Plain(t *testing.T) {
	raw := "Subject: Hello\r\nDate: Mon, 02 Sep 2024 08:00:00 +0000\r\n\r\nline one\r\nline two\r\n"
	m, err := ParseMessage([]byte(raw), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Hello", m.Subject)
	assert.Contains(t, m.Body, "line one")
	assert.Contains(t, m.Body, "line two")
	assert.True(t, m.ReceivedAt.Equal(time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)))
}

func TestParseMessage_PrefersPlainOverHTML(t *testing.T) {
	raw := strings.Join([]string{
		"Subject: Both",
		`Content-Type: multipart/alternative; boundary="x"`,
		"",
		"--x",
		"Content-Type: text/plain",
		"",
		"plain body",
		"--x",
		"Content-Type: text/html",
		"",
		"<p>html body</p>",
		"--x--",
		"",
	}, "\r\n")
	m, err := ParseMessage([]byte(raw), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "plain body", strings.TrimSpace(m.Body))
}

func TestParseMessage_Base64(t *testing.T) {
	raw := "Subject: Encoded\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Transfer-Encoding: base64\r\n\r\nQW1vdW50OiAkMTIuMzQ=\r\n"
	m, err := ParseMessage([]byte(raw), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Amount: $12.34", strings.TrimSpace(m.Body))
}

func TestParseMessage_UnknownCharsetIsReadRaw(t *testing.T) {
	raw := "Subject: Mercury Energy bill\r\nContent-Type: text/plain; charset=x-flateze-unknown\r\n\r\nAmount: $12.34\r\n"
	m, err := ParseMessage([]byte(raw), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Mercury Energy bill", m.Subject)
	assert.Contains(t, m.Body, "Amount: $12.34")
}

func TestParseMessage_UnknownCharsetPart(t *testing.T) {
	raw := strings.Join([]string{
		"Subject: Mixed",
		`Content-Type: multipart/mixed; boundary="x"`,
		"",
		"--x",
		"Content-Type: text/plain; charset=x-flateze-unknown",
		"",
		"Total: $40.00",
		"--x--",
		"",
	}, "\r\n")
	_, err := ParseMessage([]byte(raw), time.Time{})
	assert.NoError(t, err)
}

func TestParseMessage_MalformedHeader(t *testing.T) {
	_, err := ParseMessage([]byte("garbage without a colon\r\n\r\n"), time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestHTMLText(t *testing.T) {
	doc := `<html><head><title>t</title><script>var x = "$999.00";</script></head>
<body><div>Total:   <b>$12.00</b></div><p>Due 01/01/2025</p><br/>Bye &amp; thanks</body></html>`
	got := htmlText(doc)
	assert.NotContains(t, got, "999")
	assert.Contains(t, got, "Total: $12.00")
	assert.Contains(t, got, "Due 01/01/2025")
	assert.Contains(t, got, "Bye & thanks")
}

package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // non-UTF-8 bodies
	"github.com/emersion/go-message/mail"

	"github.com/flateze/flateze/internal/model"
)

// ErrMalformed reports bytes that cannot be read as a mail message.
var ErrMalformed = errors.New("malformed message")

// ParseMessage decodes a raw RFC 5322 message into its subject, plain-text
// body and date. The first text/plain part is used as the body; HTML-only
// messages are reduced to their visible text. fallback stands in for a
// missing or unreadable Date header.
func ParseMessage(raw []byte, fallback time.Time) (model.RawMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && (mr == nil || !undecodable(err)) {
		return model.RawMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer mr.Close()

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}

	date, err := mr.Header.Date()
	if err != nil || date.IsZero() {
		date = fallback
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && undecodable(err) {
			if p == nil {
				continue
			}
		} else if err != nil {
			return model.RawMessage{}, fmt.Errorf("%w: reading part: %v", ErrMalformed, err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue // attachment
		}
		ct, _, err := h.ContentType()
		if err != nil {
			ct = "text/plain"
		}

		content, err := io.ReadAll(p.Body)
		if err != nil {
			return model.RawMessage{}, fmt.Errorf("%w: reading %s body: %v", ErrMalformed, ct, err)
		}

		switch strings.ToLower(ct) {
		case "text/plain":
			if plain == "" {
				plain = string(content)
			}
		case "text/html":
			if html == "" {
				html = string(content)
			}
		}
	}

	body := plain
	if strings.TrimSpace(body) == "" && html != "" {
		body = htmlText(html)
	}

	return model.RawMessage{
		Subject:    strings.TrimSpace(subject),
		Body:       body,
		ReceivedAt: date,
	}, nil
}

// undecodable reports an unknown charset or transfer encoding. The part is
// still readable, left in its raw form.
func undecodable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

// Package message defines the per-request context that selectors extract
// candidate values from: the connection and envelope metadata of one mail
// message. A Message is constructed by the caller before evaluation and is
// read-only while rulesets evaluate against it.
package message

import (
	"fmt"
	"io"
	"net/mail"
	"net/netip"
	"net/textproto"
)

// Message carries the connection and envelope metadata of a single
// message under evaluation.
type Message struct {
	// SenderIP is the address of the connecting client. The zero Addr
	// means no connection information is available.
	SenderIP netip.Addr

	// Helo is the HELO/EHLO hostname announced by the client.
	Helo string

	// Hostname is the resolved (rDNS) hostname of the client.
	Hostname string

	// User is the authenticated username, if any.
	User string

	// EnvelopeFrom is the envelope sender (MAIL FROM).
	EnvelopeFrom string

	// Rcpts are the envelope recipients (RCPT TO) in submission order.
	Rcpts []string

	// Headers holds the parsed message headers keyed by canonical MIME
	// header name. Use Header for case-insensitive access.
	Headers map[string][]string
}

// AddHeader appends a header value under the canonical form of name.
func (m *Message) AddHeader(name, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string][]string)
	}
	key := textproto.CanonicalMIMEHeaderKey(name)
	m.Headers[key] = append(m.Headers[key], value)
}

// Header returns all values of the named header, or nil if absent.
// The name is matched case-insensitively.
func (m *Message) Header(name string) []string {
	return m.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// ReadFrom parses an RFC 5322 message from r and returns a Message with
// its headers populated. Envelope and connection fields are left for the
// caller to fill in; header parsing stops at the body.
func ReadFrom(r io.Reader) (*Message, error) {
	parsed, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	msg := &Message{}
	for name, values := range parsed.Header {
		for _, value := range values {
			msg.AddHeader(name, value)
		}
	}
	return msg, nil
}

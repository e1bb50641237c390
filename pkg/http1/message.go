package http1

import (
	"io"
	"strconv"
	"strings"
)

// UserAgent is sent with every message built by NewMessage.
const UserAgent = "inet/0.10"

// Message is an outgoing request.
type Message struct {
	Method   Method
	Resource string
	Header   Header

	body []byte
}

// NewMessage creates a request for "/" on host with the default headers:
// Host, User-Agent and "Connection: close".
func NewMessage(m Method, host string) *Message {
	return &Message{
		Method:   m,
		Resource: "/",
		Header: Header{
			"Host":       host,
			"User-Agent": UserAgent,
			"Connection": "close",
		},
	}
}

// Host returns the Host header.
func (m *Message) Host() string {
	return m.Header.Get("Host")
}

// SetHost sets the Host header.
func (m *Message) SetHost(host string) *Message {
	m.header().Set("Host", host)
	return m
}

// SetBody attaches b without copying it and sets Content-Length. The caller
// must keep b unchanged until the message has been sent.
func (m *Message) SetBody(b []byte) *Message {
	m.body = b
	m.header().Set("Content-Length", strconv.Itoa(len(b)))
	return m
}

// ClearBody detaches the body and removes Content-Length.
func (m *Message) ClearBody() *Message {
	m.body = nil
	m.Header.Del("Content-Length")
	return m
}

// header returns m.Header, allocating it for a zero Message.
func (m *Message) header() Header {
	if m.Header == nil {
		m.Header = Header{}
	}
	return m.Header
}

// Body returns the attached body.
func (m *Message) Body() []byte {
	return m.body
}

// Reset removes every header and the body.
func (m *Message) Reset() *Message {
	m.Header = Header{}
	return m.ClearBody()
}

// WriteTo writes the request line, the headers in name order, a blank line
// and the body.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	sb.WriteString(m.Method.String())
	sb.WriteByte(' ')
	sb.WriteString(m.Resource)
	sb.WriteString(" HTTP/1.1\r\n")
	for _, name := range m.Header.Names() {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(m.Header[name])
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")

	n, err := io.WriteString(w, sb.String())
	total := int64(n)
	if err != nil || len(m.body) == 0 {
		return total, err
	}
	n, err = w.Write(m.body)
	return total + int64(n), err
}

// Response is a parsed response. Body is owned by the response.
type Response struct {
	Version Version
	Status  Status
	Reason  string
	Header  Header
	Body    []byte
}

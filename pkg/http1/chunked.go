package http1

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inetclient/inet/pkg/transport"
)

// LineReader is the part of *transport.Conn the response decoders use.
type LineReader interface {
	ReadLine() (string, error)
	ReadFull(p []byte) error
}

var _ LineReader = (*transport.Conn)(nil)

// readHeaders reads "Name: Value" lines into h until a blank line.
func readHeaders(r LineReader, h Header) error {
	for {
		line, err := r.ReadLine()
		if err != nil {
			return lineErr("read header", err)
		}
		if line == "" {
			return nil
		}
		name, value := parseHeaderLine(line)
		h.Set(name, value)
	}
}

// ReadChunked decodes a chunked body of at most limit bytes. Trailer fields
// are merged into trailers.
func ReadChunked(r LineReader, trailers Header, limit int64) ([]byte, error) {
	var body []byte
	for {
		line, err := r.ReadLine()
		if err != nil {
			return body, lineErr("read chunk size", err)
		}

		size, err := parseChunkSize(line)
		if err != nil {
			return body, &transport.Error{Kind: transport.KindDecode, Op: "read chunk size", Err: err}
		}
		if size == 0 {
			return body, readHeaders(r, trailers)
		}
		if int64(size) > limit-int64(len(body)) {
			return body, transport.Errorf(transport.KindQuota, "read chunk", "chunked body exceeds limit %d", limit)
		}

		start := len(body)
		body = append(body, make([]byte, size)...)
		if err := r.ReadFull(body[start:]); err != nil {
			return body[:start], transport.Classify("read chunk", err)
		}

		// CRLF after the data
		var crlf [2]byte
		if err := r.ReadFull(crlf[:]); err != nil {
			return body, transport.Classify("read chunk", err)
		}
	}
}

// parseChunkSize reads the hex size of a chunk-size line, ignoring any
// extensions after ';'.
func parseChunkSize(line string) (int, error) {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	n, err := strconv.ParseUint(line, 16, 31)
	if err != nil {
		return 0, fmt.Errorf("invalid chunk size %q", line)
	}
	return int(n), nil
}

// lineErr classifies a line read failure. End of stream where a line was
// required is a framing error.
func lineErr(op string, err error) error {
	if errors.Is(err, io.EOF) {
		return &transport.Error{Kind: transport.KindDecode, Op: op, Err: io.ErrUnexpectedEOF}
	}
	return transport.Classify(op, err)
}

package http1

import (
	"sort"
	"strconv"
	"strings"
)

// Method is a request method.
type Method int

const (
	GET Method = iota
	HEAD
	POST
)

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case HEAD:
		return "HEAD"
	case POST:
		return "POST"
	default:
		return "Method(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMethod returns the method named s.
func ParseMethod(s string) (Method, bool) {
	switch strings.ToUpper(s) {
	case "GET":
		return GET, true
	case "HEAD":
		return HEAD, true
	case "POST":
		return POST, true
	}
	return 0, false
}

// Version is a protocol version from a status line.
type Version int

const (
	HTTP09 Version = iota
	HTTP10
	HTTP11
	HTTP20
)

func (v Version) String() string {
	switch v {
	case HTTP09:
		return "HTTP/0.9"
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	case HTTP20:
		return "HTTP/2.0"
	default:
		return "HTTP/?"
	}
}

// Status is a response status code.
type Status int

const (
	StatusContinue                    Status = 100
	StatusSwitchingProtocols          Status = 101
	StatusProcessing                  Status = 102
	StatusEarlyHints                  Status = 103
	StatusOK                          Status = 200
	StatusCreated                     Status = 201
	StatusAccepted                    Status = 202
	StatusNonAuthoritativeInfo        Status = 203
	StatusNoContent                   Status = 204
	StatusResetContent                Status = 205
	StatusPartialContent              Status = 206
	StatusMultiStatus                 Status = 207
	StatusAlreadyReported             Status = 208
	StatusIMUsed                      Status = 226
	StatusMultipleChoices             Status = 300
	StatusMovedPermanently            Status = 301
	StatusFound                       Status = 302
	StatusSeeOther                    Status = 303
	StatusNotModified                 Status = 304
	StatusUseProxy                    Status = 305
	StatusSwitchProxy                 Status = 306
	StatusTemporaryRedirect           Status = 307
	StatusPermanentRedirect           Status = 308
	StatusBadRequest                  Status = 400
	StatusUnauthorized                Status = 401
	StatusPaymentRequired             Status = 402
	StatusForbidden                   Status = 403
	StatusNotFound                    Status = 404
	StatusMethodNotAllowed            Status = 405
	StatusNotAcceptable               Status = 406
	StatusProxyAuthRequired           Status = 407
	StatusRequestTimeout              Status = 408
	StatusConflict                    Status = 409
	StatusGone                        Status = 410
	StatusLengthRequired              Status = 411
	StatusPreconditionFailed          Status = 412
	StatusPayloadTooLarge             Status = 413
	StatusURITooLong                  Status = 414
	StatusUnsupportedMediaType        Status = 415
	StatusRangeNotSatisfiable         Status = 416
	StatusExpectationFailed           Status = 417
	StatusTeapot                      Status = 418
	StatusMisdirectedRequest          Status = 421
	StatusUnprocessableEntity         Status = 422
	StatusLocked                      Status = 423
	StatusFailedDependency            Status = 424
	StatusUpgradeRequired             Status = 426
	StatusPreconditionRequired        Status = 428
	StatusTooManyRequests             Status = 429
	StatusRequestHeaderFieldsTooLarge Status = 431
	StatusUnavailableForLegalReasons  Status = 451
)

var statusText = map[Status]string{
	StatusContinue:                    "Continue",
	StatusSwitchingProtocols:          "Switching Protocols",
	StatusProcessing:                  "Processing",
	StatusEarlyHints:                  "Early Hints",
	StatusOK:                          "OK",
	StatusCreated:                     "Created",
	StatusAccepted:                    "Accepted",
	StatusNonAuthoritativeInfo:        "Non-Authoritative Information",
	StatusNoContent:                   "No Content",
	StatusResetContent:                "Reset Content",
	StatusPartialContent:              "Partial Content",
	StatusMultiStatus:                 "Multi-Status",
	StatusAlreadyReported:             "Already Reported",
	StatusIMUsed:                      "IM Used",
	StatusMultipleChoices:             "Multiple Choices",
	StatusMovedPermanently:            "Moved Permanently",
	StatusFound:                       "Found",
	StatusSeeOther:                    "See Other",
	StatusNotModified:                 "Not Modified",
	StatusUseProxy:                    "Use Proxy",
	StatusSwitchProxy:                 "Switch Proxy",
	StatusTemporaryRedirect:           "Temporary Redirect",
	StatusPermanentRedirect:           "Permanent Redirect",
	StatusBadRequest:                  "Bad Request",
	StatusUnauthorized:                "Unauthorized",
	StatusPaymentRequired:             "Payment Required",
	StatusForbidden:                   "Forbidden",
	StatusNotFound:                    "Not Found",
	StatusMethodNotAllowed:            "Method Not Allowed",
	StatusNotAcceptable:               "Not Acceptable",
	StatusProxyAuthRequired:           "Proxy Authentication Required",
	StatusRequestTimeout:              "Request Timeout",
	StatusConflict:                    "Conflict",
	StatusGone:                        "Gone",
	StatusLengthRequired:              "Length Required",
	StatusPreconditionFailed:          "Precondition Failed",
	StatusPayloadTooLarge:             "Payload Too Large",
	StatusURITooLong:                  "URI Too Long",
	StatusUnsupportedMediaType:        "Unsupported Media Type",
	StatusRangeNotSatisfiable:         "Range Not Satisfiable",
	StatusExpectationFailed:           "Expectation Failed",
	StatusTeapot:                      "I'm a teapot",
	StatusMisdirectedRequest:          "Misdirected Request",
	StatusUnprocessableEntity:         "Unprocessable Entity",
	StatusLocked:                      "Locked",
	StatusFailedDependency:            "Failed Dependency",
	StatusUpgradeRequired:             "Upgrade Required",
	StatusPreconditionRequired:        "Precondition Required",
	StatusTooManyRequests:             "Too Many Requests",
	StatusRequestHeaderFieldsTooLarge: "Request Header Fields Too Large",
	StatusUnavailableForLegalReasons:  "Unavailable For Legal Reasons",
}

// Text returns the standard reason phrase, or "" for codes outside the table.
func (s Status) Text() string {
	return statusText[s]
}

func (s Status) String() string {
	return strconv.Itoa(int(s))
}

// Header maps field names to values. Names are case-sensitive and a later Set
// replaces an earlier one.
type Header map[string]string

func (h Header) Get(name string) string {
	return h[name]
}

func (h Header) Set(name, value string) {
	h[name] = value
}

func (h Header) Del(name string) {
	delete(h, name)
}

func (h Header) Has(name string) bool {
	_, ok := h[name]
	return ok
}

// Contains reports whether the value of name contains token as a substring.
func (h Header) Contains(name, token string) bool {
	v, ok := h[name]
	return ok && strings.Contains(v, token)
}

// Names returns the field names in sorted order.
func (h Header) Names() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of h.
func (h Header) Clone() Header {
	c := make(Header, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}

// parseHeaderLine splits "Name: Value" at the first colon. The value starts
// two bytes after the colon.
func parseHeaderLine(line string) (name, value string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return line, ""
	}
	name = line[:i]
	if i+2 <= len(line) {
		value = line[i+2:]
	}
	return name, value
}

// ParseCookies splits "k=v; k=v" into a map. A trailing fragment without '='
// is dropped. Leading spaces of names are trimmed.
func ParseCookies(s string) map[string]string {
	cookies := make(map[string]string)
	for s != "" {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			return cookies
		}
		key := strings.TrimLeft(s[:eq], " ")
		s = s[eq+1:]

		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			cookies[key] = s
			return cookies
		}
		cookies[key] = s[:semi]
		s = s[semi+1:]
	}
	return cookies
}

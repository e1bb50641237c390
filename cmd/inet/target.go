package main

import (
	"fmt"
	"net/url"
	"strings"
)

// target is a URL split into what the engines take.
type target struct {
	host      string
	authority string
	service   string
	resource  string
	secure    bool
}

// parseTarget accepts http, https, ws and wss URLs. The port, when present,
// becomes the service. A bare path is resolved against defaultHost over
// plain HTTP.
func parseTarget(raw, defaultHost string) (target, error) {
	if strings.HasPrefix(raw, "/") && defaultHost != "" {
		raw = "http://" + defaultHost + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return target{}, err
	}

	var t target
	switch u.Scheme {
	case "http", "ws":
	case "https", "wss":
		t.secure = true
	default:
		return target{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	t.host = u.Hostname()
	if t.host == "" {
		return target{}, fmt.Errorf("missing host in %q", raw)
	}
	t.authority = u.Host
	t.service = u.Port()
	t.resource = u.RequestURI()
	return t, nil
}

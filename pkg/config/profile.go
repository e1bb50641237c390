package config

import (
	"fmt"
	"io"
	"time"

	"cuelang.org/go/cue"

	"github.com/inetclient/inet/pkg/tlsconfig"
)

// profileSchema closes the profile so unknown keys are rejected.
const profileSchema = `
#Profile: {
	host?:         string
	timeout?:      string
	header_limit?: int & >0
	body_limit?:   int & >0
	tls?: {
		insecure?: bool
		ca_file?:  string
		alpn?: [...string]
	}
	websocket?: {
		accept_check?: bool
		random_mask?:  bool
	}
}
`

// Profile is a reusable set of client settings. Zero values mean "use the
// engine default".
type Profile struct {
	Host        string           `json:"host,omitempty"`
	Timeout     string           `json:"timeout,omitempty"`
	HeaderLimit int64            `json:"header_limit,omitempty"`
	BodyLimit   int64            `json:"body_limit,omitempty"`
	TLS         TLSProfile       `json:"tls,omitempty"`
	WebSocket   WebSocketProfile `json:"websocket,omitempty"`
}

type TLSProfile struct {
	Insecure bool     `json:"insecure,omitempty"`
	CAFile   string   `json:"ca_file,omitempty"`
	ALPN     []string `json:"alpn,omitempty"`
}

type WebSocketProfile struct {
	AcceptCheck bool `json:"accept_check,omitempty"`
	RandomMask  bool `json:"random_mask,omitempty"`
}

// LoadProfile loads and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	val, err := LoadValue(path)
	if err != nil {
		return nil, err
	}
	return decodeProfile(val)
}

// ReadProfile parses a YAML or JSON profile from r.
func ReadProfile(r io.Reader) (*Profile, error) {
	val, err := LoadValueFromReader(r)
	if err != nil {
		return nil, err
	}
	return decodeProfile(val)
}

func decodeProfile(val cue.Value) (*Profile, error) {
	schema := val.Context().CompileString(profileSchema).LookupPath(cue.ParsePath("#Profile"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("invalid profile schema: %w", err)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	p, err := Decode[Profile](unified)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the fields CUE cannot.
func (p *Profile) Validate() error {
	if _, _, err := p.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses Timeout. ok is false when no timeout is set.
func (p *Profile) TimeoutDuration() (d time.Duration, ok bool, err error) {
	if p.Timeout == "" {
		return 0, false, nil
	}
	d, err = time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, false, fmt.Errorf("invalid timeout %q: %w", p.Timeout, err)
	}
	if d < 0 {
		return 0, false, fmt.Errorf("invalid timeout %q: must not be negative", p.Timeout)
	}
	return d, true, nil
}

// TLSConfig converts the tls section for tlsconfig.New.
func (p *Profile) TLSConfig() tlsconfig.Config {
	return tlsconfig.Config{
		Insecure: p.TLS.Insecure,
		CAFile:   p.TLS.CAFile,
		ALPN:     p.TLS.ALPN,
	}
}

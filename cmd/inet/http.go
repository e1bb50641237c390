package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/inetclient/inet/pkg/http1"
)

type GetCmd struct {
	URL string `arg:"" help:"http or https URL."`
}

func (c *GetCmd) Run(ctx context.Context, logger *slog.Logger, e *env) error {
	resp, err := fetch(ctx, logger, e, http1.GET, c.URL, nil, "")
	if err != nil {
		return err
	}
	if _, err := e.stdout.Write(resp.Body); err != nil {
		return err
	}
	return statusErr(resp)
}

type HeadCmd struct {
	URL string `arg:"" help:"http or https URL."`
}

func (c *HeadCmd) Run(ctx context.Context, logger *slog.Logger, e *env) error {
	resp, err := fetch(ctx, logger, e, http1.HEAD, c.URL, nil, "")
	if err != nil {
		return err
	}
	if err := writeHead(e.stdout, resp); err != nil {
		return err
	}
	return statusErr(resp)
}

type PostCmd struct {
	URL         string `arg:"" help:"http or https URL."`
	Data        string `short:"d" help:"Request body." required:""`
	ContentType string `name:"content-type" default:"application/x-www-form-urlencoded" help:"Content-Type of the body."`
}

func (c *PostCmd) Run(ctx context.Context, logger *slog.Logger, e *env) error {
	resp, err := fetch(ctx, logger, e, http1.POST, c.URL, []byte(c.Data), c.ContentType)
	if err != nil {
		return err
	}
	if _, err := e.stdout.Write(resp.Body); err != nil {
		return err
	}
	return statusErr(resp)
}

// httpOptions turns the profile into engine options.
func (e *env) httpOptions(logger *slog.Logger, t target) ([]http1.Option, error) {
	opts := []http1.Option{
		http1.WithTLSConfig(e.tls),
		http1.WithLogger(logger),
	}
	if t.service != "" {
		opts = append(opts, http1.WithService(t.service))
	}
	if d, ok, err := e.profile.TimeoutDuration(); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, http1.WithTimeout(d))
	}
	if e.profile.HeaderLimit > 0 {
		opts = append(opts, http1.WithHeaderLimit(e.profile.HeaderLimit))
	}
	if e.profile.BodyLimit > 0 {
		opts = append(opts, http1.WithBodyLimit(e.profile.BodyLimit))
	}
	return opts, nil
}

// fetch performs a single request on a fresh connection. Interim 100
// responses are skipped.
func fetch(ctx context.Context, logger *slog.Logger, e *env, method http1.Method, rawURL string, body []byte, contentType string) (*http1.Response, error) {
	t, err := parseTarget(rawURL, e.profile.Host)
	if err != nil {
		return nil, err
	}

	opts, err := e.httpOptions(logger, t)
	if err != nil {
		return nil, err
	}

	client := http1.New(t.host, t.secure, opts...)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	defer client.Disconnect()
	logger.Info("connected", "host", t.host, "protocol", client.Protocol())

	msg := http1.NewMessage(method, t.authority)
	msg.Resource = t.resource
	if body != nil {
		msg.SetBody(body)
		msg.Header.Set("Content-Type", contentType)
	}
	if err := client.Send(msg); err != nil {
		return nil, err
	}

	for {
		resp, err := client.Retrieve()
		if err != nil {
			return nil, err
		}
		if resp.Status != http1.StatusContinue {
			logger.Info("response", "status", resp.Status, "reason", resp.Reason, "bytes", len(resp.Body))
			return resp, nil
		}
	}
}

func writeHead(w io.Writer, resp *http1.Response) error {
	if _, err := fmt.Fprintf(w, "%s %d %s\r\n", resp.Version, resp.Status, resp.Reason); err != nil {
		return err
	}
	for _, name := range resp.Header.Names() {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", name, resp.Header.Get(name)); err != nil {
			return err
		}
	}
	return nil
}

func statusErr(resp *http1.Response) error {
	if resp.Status >= 400 {
		return fmt.Errorf("server responded %d %s", resp.Status, resp.Reason)
	}
	return nil
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/inetclient/inet/pkg/netstr"
	"github.com/inetclient/inet/pkg/websocket"
)

type WSCmd struct {
	URL    string `arg:"" help:"ws or wss URL."`
	Text   bool   `help:"Read stdin line by line as text messages and print replies as lines instead of keyed netstrings."`
	Listen bool   `help:"Only receive: print incoming messages until the server closes."`
}

func (c *WSCmd) Run(ctx context.Context, logger *slog.Logger, e *env) error {
	t, err := parseTarget(c.URL, e.profile.Host)
	if err != nil {
		return err
	}

	client := websocket.New(t.host, t.secure, e.wsOptions(logger, t)...)
	if err := client.Dial(ctx, t.resource); err != nil {
		return err
	}
	defer client.Disconnect()
	logger.Info("upgraded", "host", t.host, "resource", t.resource, "protocol", client.Protocol())

	out := c.output(e.stdout)
	switch {
	case c.Listen:
		return ignoreClosed(receive(client, out, -1))
	case c.Text:
		return c.runLines(client, e.stdin, out)
	default:
		return c.runKeyed(client, e.stdin, out)
	}
}

func (e *env) wsOptions(logger *slog.Logger, t target) []websocket.Option {
	opts := []websocket.Option{
		websocket.WithTLSConfig(e.tls),
		websocket.WithLogger(logger),
	}
	if t.service != "" {
		opts = append(opts, websocket.WithService(t.service))
	}
	if d, ok, _ := e.profile.TimeoutDuration(); ok {
		opts = append(opts, websocket.WithTimeout(d))
	}
	if e.profile.BodyLimit > 0 {
		opts = append(opts, websocket.WithMaxMessage(e.profile.BodyLimit))
	}
	if e.profile.WebSocket.AcceptCheck {
		opts = append(opts, websocket.WithAcceptCheck())
	}
	if e.profile.WebSocket.RandomMask {
		opts = append(opts, websocket.WithRandomMask())
	}
	return opts
}

// messageWriter prints one received message.
type messageWriter func(websocket.FrameType, []byte) error

func (c *WSCmd) output(w io.Writer) messageWriter {
	if c.Text {
		return func(typ websocket.FrameType, msg []byte) error {
			if typ == websocket.Close {
				return nil
			}
			_, err := fmt.Fprintf(w, "%s\n", msg)
			return err
		}
	}
	enc := netstr.NewEncoder(w)
	return func(typ websocket.FrameType, msg []byte) error {
		return enc.EncodeKeyed(frameKey(typ), msg)
	}
}

func frameKey(typ websocket.FrameType) byte {
	switch typ {
	case websocket.Text:
		return netstr.KeyText
	case websocket.Binary:
		return netstr.KeyBinary
	case websocket.Pong:
		return netstr.KeyPong
	default:
		return netstr.KeyClose
	}
}

// receive prints up to n messages, or all of them when n is negative. It
// stops after a close frame.
func receive(client *websocket.Client, out messageWriter, n int) error {
	var buf []byte
	for i := 0; n < 0 || i < n; i++ {
		msg, typ, err := client.Retrieve(buf[:0])
		if err != nil {
			return err
		}
		buf = msg
		if err := out(typ, msg); err != nil {
			return err
		}
		if typ == websocket.Close {
			return errClosed
		}
	}
	return nil
}

var errClosed = errors.New("connection closed by server")

// runKeyed reads keyed netstrings from stdin: 't' and 'b' send a message
// and print the reply, 'p' pings and prints the pong, 'c' closes.
func (c *WSCmd) runKeyed(client *websocket.Client, in io.Reader, out messageWriter) error {
	dec := netstr.NewDecoder(in, netstr.Lenient())
	for {
		key, value, err := dec.DecodeKeyed()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch key {
		case netstr.KeyText, netstr.KeyBinary:
			err = client.Send(value, key == netstr.KeyText)
		case netstr.KeyPing:
			err = client.Ping(value)
		case netstr.KeyClose:
			return client.Disconnect()
		default:
			return fmt.Errorf("unknown message key %q", key)
		}
		if err != nil {
			return err
		}

		if err := receive(client, out, 1); err != nil {
			return ignoreClosed(err)
		}
	}
}

// runLines sends every stdin line as a text message and prints one reply
// per line.
func (c *WSCmd) runLines(client *websocket.Client, in io.Reader, out messageWriter) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := client.Send(scanner.Bytes(), true); err != nil {
			return err
		}
		if err := receive(client, out, 1); err != nil {
			return ignoreClosed(err)
		}
	}
	return scanner.Err()
}

func ignoreClosed(err error) error {
	if errors.Is(err, errClosed) {
		return nil
	}
	return err
}

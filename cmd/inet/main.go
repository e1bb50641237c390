package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/inetclient/inet/pkg/config"
	"github.com/inetclient/inet/pkg/oslog"
	"github.com/inetclient/inet/pkg/tlsconfig"
)

type CLI struct {
	Verbose  int    `short:"v" type:"counter" help:"Increase verbosity (-v info, -vv debug)."`
	Config   string `help:"Client profile (YAML, JSON or CUE)." type:"existingfile"`
	Insecure bool   `help:"Skip certificate verification."`
	CAFile   string `name:"ca-file" help:"PEM file of trusted CA certificates." type:"existingfile"`
	OSLog    bool   `name:"os-log" help:"Log to the system log where supported."`

	Get  GetCmd  `cmd:"" help:"Fetch a resource and write the body to stdout."`
	Head HeadCmd `cmd:"" help:"Print the status line and headers of a resource."`
	Post PostCmd `cmd:"" help:"Post data and write the response body to stdout."`
	WS   WSCmd   `cmd:"" name:"ws" help:"Exchange WebSocket messages over stdin and stdout."`
}

// env carries what every subcommand needs.
type env struct {
	profile *config.Profile
	tls     *tls.Config
	stdin   io.Reader
	stdout  io.Writer
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("inet"),
		kong.Description("Minimal HTTP/1.1 and WebSocket client."),
		kong.UsageOnError(),
	)

	logger := newLogger(os.Stderr, cli.Verbose, cli.OSLog)

	e, err := cli.env()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(logger, e); err != nil {
		logger.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbosity int, osLog bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity >= 2:
		level = slog.LevelDebug
	}
	if osLog {
		if h := oslog.NewHandler(level); h != nil {
			return slog.New(h)
		}
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

// env loads the profile and applies flag overrides on top of it.
func (c *CLI) env() (*env, error) {
	profile := &config.Profile{}
	if c.Config != "" {
		p, err := config.LoadProfile(c.Config)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", c.Config, err)
		}
		profile = p
	}
	if c.Insecure {
		profile.TLS.Insecure = true
	}
	if c.CAFile != "" {
		profile.TLS.CAFile = c.CAFile
	}

	tlsCfg, err := tlsconfig.New(profile.TLSConfig())
	if err != nil {
		return nil, err
	}

	return &env{
		profile: profile,
		tls:     tlsCfg,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}, nil
}

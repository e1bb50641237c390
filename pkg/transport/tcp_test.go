package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inetclient/inet/pkg/breakerpool"
	"github.com/inetclient/inet/pkg/bufstream"
)

// setupTCPServer starts a one-shot localhost server running serverLogic on
// the first accepted connection.
func setupTCPServer(t *testing.T, serverLogic func(net.Conn)) (host, port string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serverLogic(conn)
	}()

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

// closedPort returns a localhost port nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	return port
}

func TestTCP_OpenEcho(t *testing.T) {
	host, port := setupTCPServer(t, func(c net.Conn) {
		line, err := bufio.NewReader(c).ReadString('\n')
		if err != nil {
			return
		}
		c.Write([]byte("echo: " + line))
	})

	tr := NewTCP(WithLogger(testLogger(t)))
	require.Equal(t, NotConnected, tr.Protocol())
	require.False(t, tr.Stream().Bound())

	require.NoError(t, tr.Open(context.Background(), host, port))
	require.True(t, tr.IsOpen())
	require.True(t, tr.Stream().Bound())
	require.Equal(t, "TCP", tr.Protocol())
	require.Equal(t, host+":"+port, tr.RemoteAddr().String())

	c := NewConn(tr)
	_, err := c.WriteString("hello\r\n")
	require.NoError(t, err)
	require.NoError(t, c.Flush())

	line, err := c.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "echo: hello", line)

	require.NoError(t, tr.Close())
	require.False(t, tr.IsOpen())
	require.False(t, tr.Stream().Bound())
	require.Equal(t, NotConnected, tr.Protocol())
	require.Nil(t, tr.RemoteAddr())
	require.NoError(t, tr.Close())
}

func TestTCP_OpenResolvesHostName(t *testing.T) {
	_, port := setupTCPServer(t, func(c net.Conn) {
		c.Write([]byte("hi\r\n"))
	})

	tr := NewTCP()
	require.NoError(t, tr.Open(context.Background(), "localhost", port))
	defer tr.Close()

	line, err := NewConn(tr).ReadLine()
	require.NoError(t, err)
	require.Equal(t, "hi", line)
}

func TestTCP_OpenRefused(t *testing.T) {
	tr := NewTCP(WithLogger(testLogger(t)))

	err := tr.Open(context.Background(), "127.0.0.1", closedPort(t))
	require.ErrorIs(t, err, ErrOpen)
	require.Equal(t, KindOpen, KindOf(err))

	var all *breakerpool.AllUnavailableError
	require.ErrorAs(t, err, &all)
	require.Equal(t, 1, all.Attempts)

	require.False(t, tr.IsOpen())
	require.False(t, tr.Stream().Bound())
}

func TestTCP_OpenUnknownService(t *testing.T) {
	tr := NewTCP()
	err := tr.Open(context.Background(), "127.0.0.1", "no-such-service-xyz")
	require.ErrorIs(t, err, ErrOpen)
}

func TestTCP_OpenServiceName(t *testing.T) {
	// Only resolution matters here; the dial is aborted by the context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTCP()
	err := tr.Open(ctx, "127.0.0.1", "http")
	require.ErrorIs(t, err, ErrOpen)
	require.False(t, tr.IsOpen())
}

func TestTCP_ReopenClosesPrevious(t *testing.T) {
	closed := make(chan struct{})
	host, port := setupTCPServer(t, func(c net.Conn) {
		buf := make([]byte, 1)
		c.Read(buf)
		close(closed)
	})
	_, port2 := setupTCPServer(t, func(c net.Conn) {
		c.Write([]byte("second\r\n"))
	})

	tr := NewTCP()
	require.NoError(t, tr.Open(context.Background(), host, port))
	require.NoError(t, tr.Open(context.Background(), host, port2))

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("first connection was not closed")
	}

	line, err := NewConn(tr).ReadLine()
	require.NoError(t, err)
	require.Equal(t, "second", line)
	require.NoError(t, tr.Close())
}

func TestTCP_CloseFlushesPending(t *testing.T) {
	got := make(chan string, 1)
	host, port := setupTCPServer(t, func(c net.Conn) {
		line, _ := bufio.NewReader(c).ReadString('\n')
		got <- line
	})

	tr := NewTCP()
	require.NoError(t, tr.Open(context.Background(), host, port))
	_, err := tr.Stream().WriteString("bye\n")
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	select {
	case line := <-got:
		require.Equal(t, "bye\n", line)
	case <-time.After(2 * time.Second):
		t.Fatal("pending output was not flushed on close")
	}
}

func TestTCP_ReadTimeout(t *testing.T) {
	done := make(chan struct{})
	host, port := setupTCPServer(t, func(c net.Conn) {
		<-done
	})
	defer close(done)

	tr := NewTCP()
	require.NoError(t, tr.Open(context.Background(), host, port))
	defer tr.Close()

	c := NewConn(tr)
	c.EnableTimeout(50 * time.Millisecond)
	_, err := c.ReadLine()
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, KindTimeout, KindOf(err))
}

func TestTCP_StreamOptions(t *testing.T) {
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	host, port := setupTCPServer(t, func(c net.Conn) {
		c.Write(payload)
	})

	tr := NewTCP(WithStreamOptions(bufstream.WithInputSize(16)))
	require.NoError(t, tr.Open(context.Background(), host, port))
	defer tr.Close()

	buf := make([]byte, len(payload))
	require.NoError(t, NewConn(tr).ReadFull(buf))
	require.Equal(t, payload, buf)
	require.Equal(t, int64(len(payload)), tr.Stream().ReadCount())
}

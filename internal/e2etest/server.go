// Package e2etest starts a server binary in-process and talks to its JSON API over HTTP.
package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/circuitgen/internal/logging"
)

type Server struct {
	url        string
	client     *Client
	cancel     context.CancelCauseFunc
	serverDone chan struct{}
}

// LogAddrKey is the key used to log the address the server is listening on.
const LogAddrKey = "addr"

// StartServer starts the server with run, waits until it responds to /api/healthy and returns it.
//
// logSink receives the server logs, usually testhelpers.NewWriter. lookupEnv has the same signature as [os.LookupEnv].
// The server must log the address it listens on under LogAddrKey so that a dynamically allocated port can be used.
func StartServer(
	t *testing.T,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run func(context.Context, *slog.Logger, func(string) (string, bool)) error,
) (*Server, error) {
	var server *Server
	t.Cleanup(func() {
		if server != nil {
			server.Shutdown()
		}
	})
	ctx, cancel := context.WithCancelCause(t.Context())
	serverDone := make(chan struct{})

	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	go func() {
		defer close(serverDone)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("server stopped: %w", context.Cause(ctx))
	case addr = <-addrCh:
	}

	serverURL := "http://" + addr
	client := NewClient(serverURL)
	if err := client.WaitForReady(ctx, "/api/healthy"); err != nil {
		cancel(err)
		<-serverDone
		return nil, fmt.Errorf("wait for ready: %w", err)
	}

	server = &Server{
		url:        serverURL,
		client:     client,
		cancel:     cancel,
		serverDone: serverDone,
	}
	return server, nil
}

func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}

// Shutdown stops the server and waits for run to return.
func (s *Server) Shutdown() {
	s.cancel(nil)
	<-s.serverDone
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/eruption-project/eruption-sdk/internal/framing"
	"github.com/eruption-project/eruption-sdk/internal/protocol"
)

// Handler answers one decoded request. A nil response sends no reply.
type Handler interface {
	Handle(context.Context, protocol.Request) protocol.Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, protocol.Request) protocol.Response

func (f HandlerFunc) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	return f(ctx, req)
}

// ServeOptions tunes Serve.
type ServeOptions struct {
	Logger         *slog.Logger
	MaxMessageSize int
}

// Serve answers control-socket clients until context cancellation or
// listener close. Each client holds its connection open and exchanges any
// number of request/response pairs.
func Serve(ctx context.Context, listener *net.UnixListener, handler Handler, opts ServeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxSize := opts.MaxMessageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}

	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func(c *net.UnixConn) {
			defer wg.Done()
			defer c.Close()
			stop := context.AfterFunc(ctx, func() { _ = c.Close() })
			defer stop()

			logger.Info("sdk client connected")
			serveConn(ctx, c, handler, logger, maxSize)
			logger.Info("sdk client disconnected")
		}(conn)
	}
}

func serveConn(ctx context.Context, c *net.UnixConn, handler Handler, logger *slog.Logger, maxSize int) {
	buf := make([]byte, maxSize)
	for {
		n, err := c.Read(buf)
		if err != nil || n == 0 {
			return
		}

		req, err := decodeFrame(buf[:n])
		if err != nil {
			logger.Warn("protocol error", "error", err.Error(), "bytes", n)
			continue
		}
		logger.Debug("request", "kind", req.Kind().String())

		resp := handler.Handle(ctx, req)
		if resp == nil {
			continue
		}

		reply, err := encodeFrame(resp)
		if err != nil {
			logger.Error("encode response failed", "kind", resp.Kind().String(), "error", err.Error())
			continue
		}
		if _, err := c.Write(reply); err != nil {
			logger.Warn("send response failed", "error", err.Error())
			return
		}
	}
}

func decodeFrame(b []byte) (protocol.Request, error) {
	payload, err := framing.Unframe(b)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeRequest(payload)
}

func encodeFrame(resp protocol.Response) ([]byte, error) {
	payload, err := protocol.EncodeResponse(resp)
	if err != nil {
		return nil, err
	}
	return framing.Frame(payload)
}

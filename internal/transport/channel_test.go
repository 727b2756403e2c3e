package transport

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eruption-project/eruption-sdk/internal/framing"
	"github.com/eruption-project/eruption-sdk/internal/protocol"
)

func listenPacket(t *testing.T) (string, *net.UnixListener) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "control.sock")
	listener, err := net.ListenUnix(network, &net.UnixAddr{Name: socketPath, Net: network})
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	return socketPath, listener
}

// acceptOnce runs fn against the first accepted connection.
func acceptOnce(t *testing.T, listener *net.UnixListener, fn func(*net.UnixConn)) <-chan struct{} {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := listener.AcceptUnix()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
	return done
}

func startServer(t *testing.T, handler Handler) string {
	t.Helper()

	socketPath, listener := listenPacket(t)
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, handler, ServeOptions{})
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-serveDone)
	})
	return socketPath
}

func TestCallRoundTripReusesConnection(t *testing.T) {
	socketPath := startServer(t, HandlerFunc(func(_ context.Context, req protocol.Request) protocol.Response {
		switch r := req.(type) {
		case protocol.StatusRequest:
			return protocol.StatusResponse{Description: "eruption 0.1.0"}
		case protocol.SwitchProfileRequest:
			return protocol.SwitchProfileResponse{Switched: r.ProfileFile == "ok.profile"}
		default:
			return protocol.NoopResponse{}
		}
	}))

	ch, err := Dial(context.Background(), socketPath, Options{ReceiveTimeout: time.Second})
	require.NoError(t, err)
	defer ch.Close()

	resp, err := Call(context.Background(), ch, protocol.StatusRequest{})
	require.NoError(t, err)
	require.Equal(t, protocol.StatusResponse{Description: "eruption 0.1.0"}, resp)

	resp, err = Call(context.Background(), ch, protocol.SwitchProfileRequest{ProfileFile: "ok.profile"})
	require.NoError(t, err)
	require.Equal(t, protocol.SwitchProfileResponse{Switched: true}, resp)

	resp, err = Call(context.Background(), ch, protocol.SwitchProfileRequest{ProfileFile: "nope.profile"})
	require.NoError(t, err)
	require.Equal(t, protocol.SwitchProfileResponse{Switched: false}, resp)
}

func TestDialMissingSocket(t *testing.T) {
	_, err := Dial(context.Background(), filepath.Join(t.TempDir(), "absent.sock"), Options{})
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.True(t, IsSocketMissing(err))
}

func TestDialIgnoresReceiveTimeout(t *testing.T) {
	socketPath, listener := listenPacket(t)
	done := acceptOnce(t, listener, func(*net.UnixConn) {})

	ch, err := Dial(context.Background(), socketPath, Options{ReceiveTimeout: time.Nanosecond, DialTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, ch.Close())
	<-done
}

func TestSendRejectsOversizedMessageBeforeWriting(t *testing.T) {
	socketPath, listener := listenPacket(t)
	received := make(chan int, 1)
	done := acceptOnce(t, listener, func(conn *net.UnixConn) {
		_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
		buf := make([]byte, 256)
		n, _ := conn.Read(buf)
		received <- n
	})

	ch, err := Dial(context.Background(), socketPath, Options{MaxMessageSize: 64})
	require.NoError(t, err)

	n, err := ch.Send(context.Background(), make([]byte, 65))
	require.ErrorIs(t, err, framing.ErrFrameTooLarge)
	require.Zero(t, n)

	require.NoError(t, ch.Close())
	<-done
	require.Zero(t, <-received)
}

func TestReceiveDetectsTruncatedReply(t *testing.T) {
	socketPath, listener := listenPacket(t)
	done := acceptOnce(t, listener, func(conn *net.UnixConn) {
		_, _ = conn.Write(make([]byte, 200))
		buf := make([]byte, 16)
		_, _ = conn.Read(buf)
	})

	ch, err := Dial(context.Background(), socketPath, Options{MaxMessageSize: 64, ReceiveTimeout: time.Second})
	require.NoError(t, err)

	_, err = ch.Receive(context.Background())
	require.ErrorIs(t, err, framing.ErrFrameTooLarge)

	require.NoError(t, ch.Close())
	<-done
}

func TestReceiveTimeout(t *testing.T) {
	socketPath, listener := listenPacket(t)
	done := acceptOnce(t, listener, func(conn *net.UnixConn) {
		buf := make([]byte, 16)
		_, _ = conn.Read(buf)
	})

	ch, err := Dial(context.Background(), socketPath, Options{ReceiveTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = ch.Receive(context.Background())
	require.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, ch.Close())
	<-done
}

func TestReceiveStopsOnContextCancel(t *testing.T) {
	socketPath, listener := listenPacket(t)
	done := acceptOnce(t, listener, func(conn *net.UnixConn) {
		buf := make([]byte, 16)
		_, _ = conn.Read(buf)
	})

	ch, err := Dial(context.Background(), socketPath, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err = ch.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, ch.Close())
	<-done
}

func TestReceiveReportsPeerClose(t *testing.T) {
	socketPath, listener := listenPacket(t)
	done := acceptOnce(t, listener, func(*net.UnixConn) {})

	ch, err := Dial(context.Background(), socketPath, Options{ReceiveTimeout: time.Second})
	require.NoError(t, err)
	defer ch.Close()
	<-done

	_, err = ch.Receive(context.Background())
	require.ErrorIs(t, err, ErrConnectionLost)
}

func TestCallMalformedReply(t *testing.T) {
	socketPath, listener := listenPacket(t)
	done := acceptOnce(t, listener, func(conn *net.UnixConn) {
		buf := make([]byte, 64)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		_, _ = conn.Write([]byte{0x03, 0x12, 0x05, 0x00})
	})

	ch, err := Dial(context.Background(), socketPath, Options{ReceiveTimeout: time.Second})
	require.NoError(t, err)

	_, err = Call(context.Background(), ch, protocol.StatusRequest{})
	require.ErrorIs(t, err, protocol.ErrMalformedMessage)

	require.NoError(t, ch.Close())
	<-done
}

func TestCallWritesLengthPrefixedRequest(t *testing.T) {
	socketPath, listener := listenPacket(t)
	got := make(chan []byte, 1)
	done := acceptOnce(t, listener, func(conn *net.UnixConn) {
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		got <- append([]byte(nil), buf[:n]...)
		_, _ = conn.Write([]byte{0x04, 0x12, 0x02, 0x0a, 0x00})
	})

	ch, err := Dial(context.Background(), socketPath, Options{ReceiveTimeout: time.Second})
	require.NoError(t, err)

	resp, err := Call(context.Background(), ch, protocol.StatusRequest{})
	require.NoError(t, err)
	require.Equal(t, protocol.StatusResponse{}, resp)
	require.Equal(t, []byte{0x02, 0x12, 0x00}, <-got)

	require.NoError(t, ch.Close())
	<-done
}

func TestCloseIsIdempotent(t *testing.T) {
	socketPath, listener := listenPacket(t)
	done := acceptOnce(t, listener, func(*net.UnixConn) {})

	ch, err := Dial(context.Background(), socketPath, Options{})
	require.NoError(t, err)
	require.Equal(t, socketPath, ch.Path())
	require.Equal(t, DefaultMaxMessageSize, ch.MaxMessageSize())

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	_, err = ch.Send(context.Background(), []byte{0x00})
	require.ErrorIs(t, err, ErrClosed)
	_, err = ch.Receive(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	<-done
}

func TestServeSkipsMalformedRequests(t *testing.T) {
	socketPath := startServer(t, HandlerFunc(func(_ context.Context, req protocol.Request) protocol.Response {
		if _, ok := req.(protocol.NoopRequest); ok {
			return nil
		}
		return protocol.StatusResponse{Description: "still here"}
	}))

	ch, err := Dial(context.Background(), socketPath, Options{ReceiveTimeout: time.Second})
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.Send(context.Background(), []byte{0x7f, 0x01})
	require.NoError(t, err)

	frame, err := framing.Frame([]byte{0x0a, 0x00})
	require.NoError(t, err)
	_, err = ch.Send(context.Background(), frame)
	require.NoError(t, err)

	resp, err := Call(context.Background(), ch, protocol.StatusRequest{})
	require.NoError(t, err)
	require.Equal(t, protocol.StatusResponse{Description: "still here"}, resp)
}

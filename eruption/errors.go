package eruption

import (
	"errors"

	"github.com/eruption-project/eruption-sdk/internal/framing"
	"github.com/eruption-project/eruption-sdk/internal/protocol"
	"github.com/eruption-project/eruption-sdk/internal/transport"
)

var (
	ErrConnectionFailed = transport.ErrConnectionFailed
	ErrConnectionLost   = transport.ErrConnectionLost
	ErrTimeout          = transport.ErrTimeout
	ErrFrameTooLarge    = framing.ErrFrameTooLarge
	ErrMalformedMessage = protocol.ErrMalformedMessage

	ErrNotConnected              = errors.New("not connected")
	ErrAlreadyConnected          = errors.New("already connected")
	ErrRequestFailed             = errors.New("request failed")
	ErrUnsupportedConnectionType = errors.New("invalid or unsupported connection type")

	ErrHotplugIDRange       = errors.New("hotplug identifier does not fit the one-byte wire field")
	ErrCanvasSize           = errors.New("canvas data has wrong size")
	ErrInvalidColor         = errors.New("invalid color")
	ErrUnsupportedParameter = errors.New("unsupported parameter value")
)

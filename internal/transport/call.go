package transport

import (
	"context"
	"fmt"

	"github.com/eruption-project/eruption-sdk/internal/framing"
	"github.com/eruption-project/eruption-sdk/internal/protocol"
)

// Call performs one request/response exchange on ch. Reply bytes that fail
// to unframe or decode are reported as protocol.ErrMalformedMessage.
func Call(ctx context.Context, ch *Channel, req protocol.Request) (protocol.Response, error) {
	payload, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	frame, err := framing.Frame(payload)
	if err != nil {
		return nil, err
	}

	if _, err := ch.Send(ctx, frame); err != nil {
		return nil, err
	}

	reply, err := ch.Receive(ctx)
	if err != nil {
		return nil, err
	}

	body, err := framing.Unframe(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrMalformedMessage, err)
	}

	return protocol.DecodeResponse(body)
}

package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrUnknownVariant reports a value outside the closed variant set.
	ErrUnknownVariant = errors.New("unknown message variant")
	// ErrInvalidString reports a string field that is not valid UTF-8.
	ErrInvalidString = errors.New("string field is not valid UTF-8")
)

// Field numbers inside the variant sub-messages.
const (
	fieldProfileFile     protowire.Number = 1
	fieldScriptFile      protowire.Number = 2
	fieldParameterValues protowire.Number = 3
	fieldCanvas          protowire.Number = 1
	fieldPayload         protowire.Number = 1
	fieldDescription     protowire.Number = 1
	fieldSwitched        protowire.Number = 1
	fieldMapKey          protowire.Number = 1
	fieldMapValue        protowire.Number = 2
)

// EncodeRequest serializes the active request variant.
func EncodeRequest(req Request) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrUnknownVariant)
	}

	var body []byte
	var err error
	switch r := req.(type) {
	case NoopRequest, StatusRequest, ActiveProfileRequest:
	case SwitchProfileRequest:
		body, err = appendString(body, fieldProfileFile, r.ProfileFile)
	case SetParametersRequest:
		body, err = encodeSetParameters(r)
	case SetCanvasRequest:
		body = appendBytes(body, fieldCanvas, r.Canvas)
	case HotplugRequest:
		body = appendBytes(body, fieldPayload, r.Payload)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, req)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Kind(), err)
	}

	return appendMessage(nil, protowire.Number(req.Kind()), body), nil
}

// EncodeResponse serializes the active response variant.
func EncodeResponse(resp Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrUnknownVariant)
	}

	var body []byte
	var err error
	switch r := resp.(type) {
	case NoopResponse, SetParametersResponse, SetCanvasResponse, HotplugResponse:
	case StatusResponse:
		body, err = appendString(body, fieldDescription, r.Description)
	case ActiveProfileResponse:
		body, err = appendString(body, fieldProfileFile, r.ProfileFile)
	case SwitchProfileResponse:
		if r.Switched {
			body = protowire.AppendTag(body, fieldSwitched, protowire.VarintType)
			body = protowire.AppendVarint(body, protowire.EncodeBool(true))
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s response: %w", resp.Kind(), err)
	}

	return appendMessage(nil, protowire.Number(resp.Kind()), body), nil
}

func encodeSetParameters(r SetParametersRequest) ([]byte, error) {
	body, err := appendString(nil, fieldProfileFile, r.ProfileFile)
	if err != nil {
		return nil, err
	}
	if body, err = appendString(body, fieldScriptFile, r.ScriptFile); err != nil {
		return nil, err
	}

	for _, p := range r.Parameters {
		// map entries always carry both key and value
		if !utf8.ValidString(p.Name) || !utf8.ValidString(p.Value) {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, ErrInvalidString)
		}
		entry := protowire.AppendTag(nil, fieldMapKey, protowire.BytesType)
		entry = protowire.AppendString(entry, p.Name)
		entry = protowire.AppendTag(entry, fieldMapValue, protowire.BytesType)
		entry = protowire.AppendString(entry, p.Value)
		body = appendMessage(body, fieldParameterValues, entry)
	}

	return body, nil
}

// appendString emits a proto3 string field, omitting the default value.
func appendString(b []byte, num protowire.Number, s string) ([]byte, error) {
	if s == "" {
		return b, nil
	}
	if !utf8.ValidString(s) {
		return nil, ErrInvalidString
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s), nil
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage emits a sub-message field; empty bodies still produce the
// field so the variant is marked present.
func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

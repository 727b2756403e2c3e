package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedMessage reports bytes that do not decode as a valid message.
var ErrMalformedMessage = errors.New("malformed message")

// DecodeResponse parses one serialized Response.
func DecodeResponse(b []byte) (Response, error) {
	kind, body, err := decodeEnvelope(b)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindNoop:
		return NoopResponse{}, skipAll(body)
	case KindStatus:
		var resp StatusResponse
		err := walk(body, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
			if num != fieldDescription {
				return nil
			}
			s, err := decodeString(num, typ, v)
			resp.Description = s
			return err
		})
		return resp, err
	case KindActiveProfile:
		var resp ActiveProfileResponse
		err := walk(body, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
			if num != fieldProfileFile {
				return nil
			}
			s, err := decodeString(num, typ, v)
			resp.ProfileFile = s
			return err
		})
		return resp, err
	case KindSwitchProfile:
		var resp SwitchProfileResponse
		err := walk(body, func(num protowire.Number, typ protowire.Type, _ []byte, n uint64) error {
			if num != fieldSwitched {
				return nil
			}
			if err := wantType(num, typ, protowire.VarintType); err != nil {
				return err
			}
			resp.Switched = protowire.DecodeBool(n)
			return nil
		})
		return resp, err
	case KindSetParameters:
		return SetParametersResponse{}, skipAll(body)
	case KindSetCanvas:
		return SetCanvasResponse{}, skipAll(body)
	case KindHotplug:
		return HotplugResponse{}, skipAll(body)
	}

	return nil, fmt.Errorf("%w: unexpected variant %s", ErrMalformedMessage, kind)
}

// DecodeRequest parses one serialized Request.
func DecodeRequest(b []byte) (Request, error) {
	kind, body, err := decodeEnvelope(b)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindNoop:
		return NoopRequest{}, skipAll(body)
	case KindStatus:
		return StatusRequest{}, skipAll(body)
	case KindActiveProfile:
		return ActiveProfileRequest{}, skipAll(body)
	case KindSwitchProfile:
		var req SwitchProfileRequest
		err := walk(body, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
			if num != fieldProfileFile {
				return nil
			}
			s, err := decodeString(num, typ, v)
			req.ProfileFile = s
			return err
		})
		return req, err
	case KindSetParameters:
		return decodeSetParameters(body)
	case KindSetCanvas:
		var req SetCanvasRequest
		err := walk(body, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
			if num != fieldCanvas {
				return nil
			}
			if err := wantType(num, typ, protowire.BytesType); err != nil {
				return err
			}
			req.Canvas = append([]byte(nil), v...)
			return nil
		})
		return req, err
	case KindHotplug:
		var req HotplugRequest
		err := walk(body, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
			if num != fieldPayload {
				return nil
			}
			if err := wantType(num, typ, protowire.BytesType); err != nil {
				return err
			}
			req.Payload = append([]byte(nil), v...)
			return nil
		})
		return req, err
	}

	return nil, fmt.Errorf("%w: unexpected variant %s", ErrMalformedMessage, kind)
}

func decodeSetParameters(body []byte) (Request, error) {
	var req SetParametersRequest
	index := make(map[string]int)

	err := walk(body, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		var err error
		switch num {
		case fieldProfileFile:
			req.ProfileFile, err = decodeString(num, typ, v)
		case fieldScriptFile:
			req.ScriptFile, err = decodeString(num, typ, v)
		case fieldParameterValues:
			if err := wantType(num, typ, protowire.BytesType); err != nil {
				return err
			}
			var p Parameter
			if p, err = decodeMapEntry(v); err != nil {
				return err
			}
			// later entries for the same key win, as with protobuf maps
			if i, ok := index[p.Name]; ok {
				req.Parameters[i].Value = p.Value
				return nil
			}
			index[p.Name] = len(req.Parameters)
			req.Parameters = append(req.Parameters, p)
		}
		return err
	})
	return req, err
}

func decodeMapEntry(b []byte) (Parameter, error) {
	var p Parameter
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		var err error
		switch num {
		case fieldMapKey:
			p.Name, err = decodeString(num, typ, v)
		case fieldMapValue:
			p.Value, err = decodeString(num, typ, v)
		}
		return err
	})
	return p, err
}

// decodeEnvelope finds the single populated oneof field of a top-level
// message. Repeats of one field merge; two distinct fields are rejected.
func decodeEnvelope(b []byte) (Kind, []byte, error) {
	var (
		kind  Kind
		body  []byte
		count int
	)

	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		k := Kind(num)
		if _, known := kindNames[k]; !known {
			return nil
		}
		if err := wantType(num, typ, protowire.BytesType); err != nil {
			return err
		}
		if count > 0 {
			if k != kind {
				return fmt.Errorf("%w: more than one variant populated (%s, %s)", ErrMalformedMessage, kind, k)
			}
			// A repeated occurrence of the same variant merges into it.
			body = append(append([]byte(nil), body...), v...)
			return nil
		}
		count++
		kind, body = k, v
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, fmt.Errorf("%w: no variant populated", ErrMalformedMessage)
	}

	return kind, body, nil
}

// walk calls fn for every field in b. Length-delimited payloads arrive in
// v, varints in n; other wire types arrive with neither.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, m := protowire.ConsumeTag(b)
		if m < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(m))
		}
		b = b[m:]

		var (
			v []byte
			n uint64
		)
		switch typ {
		case protowire.BytesType:
			v, m = protowire.ConsumeBytes(b)
		case protowire.VarintType:
			n, m = protowire.ConsumeVarint(b)
		default:
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformedMessage, num, protowire.ParseError(m))
		}
		b = b[m:]

		if err := fn(num, typ, v, n); err != nil {
			return err
		}
	}
	return nil
}

func skipAll(b []byte) error {
	return walk(b, func(protowire.Number, protowire.Type, []byte, uint64) error { return nil })
}

func wantType(num protowire.Number, got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrMalformedMessage, num, got, want)
	}
	return nil
}

func decodeString(num protowire.Number, typ protowire.Type, v []byte) (string, error) {
	if err := wantType(num, typ, protowire.BytesType); err != nil {
		return "", err
	}
	if !utf8.Valid(v) {
		return "", fmt.Errorf("%w: field %d: %v", ErrMalformedMessage, num, ErrInvalidString)
	}
	return string(v), nil
}

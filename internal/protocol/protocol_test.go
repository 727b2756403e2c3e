package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeRequestEmptyVariantsAreMarkedPresent(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want []byte
	}{
		{name: "noop", req: NoopRequest{}, want: []byte{0x0a, 0x00}},
		{name: "status", req: StatusRequest{}, want: []byte{0x12, 0x00}},
		{name: "active profile", req: ActiveProfileRequest{}, want: []byte{0x1a, 0x00}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeRequest(tc.req)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEncodeSwitchProfileBytes(t *testing.T) {
	got, err := EncodeRequest(SwitchProfileRequest{ProfileFile: "/tmp/x.profile"})
	require.NoError(t, err)

	want := []byte{0x22, 0x10, 0x0a, 0x0e}
	want = append(want, "/tmp/x.profile"...)
	require.Equal(t, want, got)
}

func TestEncodeRequestIsDeterministic(t *testing.T) {
	req := SetParametersRequest{
		ProfileFile: "/var/lib/eruption/profiles/default.profile",
		ScriptFile:  "/usr/share/eruption/scripts/wave.lua",
		Parameters: []Parameter{
			{Name: "wave_length", Value: "2"},
			{Name: "speed_divisor", Value: "15"},
			{Name: "horizontal", Value: "true"},
		},
	}

	first, err := EncodeRequest(req)
	require.NoError(t, err)
	second, err := EncodeRequest(req)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRequestRoundTrip(t *testing.T) {
	canvas := make([]byte, 720)
	for i := range canvas {
		canvas[i] = byte(i * 7)
	}

	requests := []Request{
		NoopRequest{},
		StatusRequest{},
		ActiveProfileRequest{},
		SwitchProfileRequest{ProfileFile: "/tmp/x.profile"},
		SetParametersRequest{
			ProfileFile: "a.profile",
			ScriptFile:  "solid.lua",
			Parameters:  []Parameter{{Name: "color_background", Value: "#ff10a0ff"}, {Name: "empty", Value: ""}},
		},
		SetCanvasRequest{Canvas: canvas},
		HotplugRequest{Payload: []byte{0x1e, 0x3a}},
	}

	for _, req := range requests {
		t.Run(req.Kind().String(), func(t *testing.T) {
			b, err := EncodeRequest(req)
			require.NoError(t, err)

			decoded, err := DecodeRequest(b)
			require.NoError(t, err)
			require.Equal(t, req, decoded)
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	responses := []Response{
		NoopResponse{},
		StatusResponse{Description: "eruption 0.1.0"},
		StatusResponse{},
		ActiveProfileResponse{ProfileFile: "/var/lib/eruption/profiles/spectrum.profile"},
		SwitchProfileResponse{Switched: true},
		SwitchProfileResponse{Switched: false},
		SetParametersResponse{},
		SetCanvasResponse{},
		HotplugResponse{},
	}

	for _, resp := range responses {
		t.Run(resp.Kind().String(), func(t *testing.T) {
			b, err := EncodeResponse(resp)
			require.NoError(t, err)

			decoded, err := DecodeResponse(b)
			require.NoError(t, err)
			require.Equal(t, resp, decoded)
		})
	}
}

func TestCanvasPayloadSurvivesByteLevelRoundTrip(t *testing.T) {
	canvas := make([]byte, 180*4)
	for i := 0; i < 180; i++ {
		copy(canvas[i*4:], []byte{byte(i), byte(255 - i), byte(i * 3), byte(i ^ 0x5a)})
	}

	b, err := EncodeRequest(SetCanvasRequest{Canvas: canvas})
	require.NoError(t, err)

	decoded, err := DecodeRequest(b)
	require.NoError(t, err)
	got := decoded.(SetCanvasRequest).Canvas
	require.Len(t, got, 720)
	require.True(t, bytes.Equal(canvas, got))
}

func TestDecodeResponseVariantIntegrity(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{name: "empty message", in: nil},
		{name: "only unknown fields", in: []byte{0x42, 0x00}},
		{name: "two variants", in: []byte{0x12, 0x00, 0x1a, 0x00}},
		{name: "variant as varint", in: []byte{0x10, 0x01}},
		{name: "truncated length", in: []byte{0x12, 0x05, 0x00}},
		{name: "bad tag", in: []byte{0x80}},
		{name: "description wrong type", in: []byte{0x12, 0x02, 0x08, 0x01}},
		{name: "description invalid utf8", in: []byte{0x12, 0x03, 0x0a, 0x01, 0xff}},
		{name: "switched as bytes", in: []byte{0x22, 0x02, 0x0a, 0x00}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeResponse(tc.in)
			require.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestDecodeResponseMergesRepeatedVariant(t *testing.T) {
	resp, err := DecodeResponse([]byte{0x12, 0x00, 0x12, 0x00})
	require.NoError(t, err)
	require.Equal(t, StatusResponse{}, resp)

	first := protowire.AppendTag(nil, fieldDescription, protowire.BytesType)
	first = protowire.AppendString(first, "old")
	second := protowire.AppendTag(nil, fieldDescription, protowire.BytesType)
	second = protowire.AppendString(second, "eruption")

	msg := protowire.AppendTag(nil, protowire.Number(KindStatus), protowire.BytesType)
	msg = protowire.AppendBytes(msg, first)
	msg = protowire.AppendTag(msg, protowire.Number(KindStatus), protowire.BytesType)
	msg = protowire.AppendBytes(msg, second)

	resp, err = DecodeResponse(msg)
	require.NoError(t, err)
	require.Equal(t, StatusResponse{Description: "eruption"}, resp)
}

func TestDecodeResponseSkipsUnknownFields(t *testing.T) {
	body := protowire.AppendTag(nil, 9, protowire.VarintType)
	body = protowire.AppendVarint(body, 300)
	body = protowire.AppendTag(body, fieldDescription, protowire.BytesType)
	body = protowire.AppendString(body, "eruption")
	body = protowire.AppendTag(body, 10, protowire.Fixed32Type)
	body = protowire.AppendFixed32(body, 7)

	msg := protowire.AppendTag(nil, 15, protowire.BytesType)
	msg = protowire.AppendBytes(msg, []byte("future"))
	msg = protowire.AppendTag(msg, protowire.Number(KindStatus), protowire.BytesType)
	msg = protowire.AppendBytes(msg, body)

	resp, err := DecodeResponse(msg)
	require.NoError(t, err)
	require.Equal(t, StatusResponse{Description: "eruption"}, resp)
}

func TestDecodeSetParametersLaterDuplicateWins(t *testing.T) {
	b, err := EncodeRequest(SetParametersRequest{
		ProfileFile: "p",
		ScriptFile:  "s",
		Parameters: []Parameter{
			{Name: "direction", Value: "1"},
			{Name: "speed_divisor", Value: "15"},
			{Name: "direction", Value: "-1"},
		},
	})
	require.NoError(t, err)

	req, err := DecodeRequest(b)
	require.NoError(t, err)
	require.Equal(t, []Parameter{
		{Name: "direction", Value: "-1"},
		{Name: "speed_divisor", Value: "15"},
	}, req.(SetParametersRequest).Parameters)
}

func TestEncodeRejectsInvalidInput(t *testing.T) {
	_, err := EncodeRequest(nil)
	require.ErrorIs(t, err, ErrUnknownVariant)

	_, err = EncodeRequest(&StatusRequest{})
	require.ErrorIs(t, err, ErrUnknownVariant)

	_, err = EncodeRequest(SwitchProfileRequest{ProfileFile: string([]byte{0xff})})
	require.ErrorIs(t, err, ErrInvalidString)

	_, err = EncodeRequest(SetParametersRequest{Parameters: []Parameter{{Name: "k", Value: string([]byte{0xfe})}}})
	require.ErrorIs(t, err, ErrInvalidString)

	_, err = EncodeResponse(nil)
	require.ErrorIs(t, err, ErrUnknownVariant)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "set_canvas", KindSetCanvas.String())
	require.Equal(t, "kind(42)", Kind(42).String())
}

// Package framing delimits control-socket messages with a base-128 varint
// length prefix.
package framing

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameLength is the largest payload a frame may carry.
const MaxFrameLength = 1<<31 - 1

var (
	// ErrFrameTooLarge reports a payload that cannot be framed or transmitted.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrShortFrame reports a buffer that ends before the declared payload.
	ErrShortFrame = errors.New("frame shorter than declared length")
	// ErrTrailingBytes reports data left over after the declared payload.
	ErrTrailingBytes = errors.New("trailing bytes after frame")
	// ErrBadPrefix reports an unparsable length prefix.
	ErrBadPrefix = errors.New("invalid frame length prefix")
)

// Frame returns payload prefixed with its varint-encoded length.
func Frame(payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	size := uint64(len(payload))
	out := make([]byte, 0, protowire.SizeVarint(size)+len(payload))
	out = protowire.AppendVarint(out, size)
	return append(out, payload...), nil
}

// Unframe parses the length prefix at the start of buf and returns the
// payload it declares. buf must hold exactly one frame.
func Unframe(buf []byte) ([]byte, error) {
	size, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadPrefix, protowire.ParseError(n))
	}
	if size > MaxFrameLength {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrFrameTooLarge, size)
	}

	rest := buf[n:]
	switch {
	case uint64(len(rest)) < size:
		return nil, fmt.Errorf("%w: declared %d, have %d", ErrShortFrame, size, len(rest))
	case uint64(len(rest)) > size:
		return nil, fmt.Errorf("%w: %d extra", ErrTrailingBytes, uint64(len(rest))-size)
	}

	return rest, nil
}

// PrefixLen returns the number of bytes Frame spends on the length prefix
// of an n-byte payload.
func PrefixLen(n int) int {
	return protowire.SizeVarint(uint64(n))
}

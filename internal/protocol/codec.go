package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Frame header layout: [flags u8][payload length u32 big-endian].
const (
	HeaderSize = 5

	// FlagCompressed marks an LZ4-compressed payload.
	FlagCompressed byte = 1 << 0

	// CompressThreshold is the payload size above which frames are
	// compressed even without a snapshot.
	CompressThreshold = 4096

	// MaxPayloadSize bounds a decoded payload.
	MaxPayloadSize = 16 << 20
)

// ErrMalformedFrame is returned for frames that cannot be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// Encode serializes v with msgpack and wraps it in a frame header. The
// payload is compressed when compress is set or it is large.
func Encode(v any, compress bool) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var flags byte
	if compress || len(payload) > CompressThreshold {
		z, err := compressLZ4(payload)
		if err != nil {
			return nil, err
		}
		payload = z
		flags |= FlagCompressed
	}

	out := make([]byte, HeaderSize+len(payload))
	out[0] = flags
	binary.BigEndian.PutUint32(out[1:HeaderSize], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out, nil
}

// Decode unwraps a frame and unmarshals its payload into v.
func Decode(data []byte, v any) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: short header (%d bytes)", ErrMalformedFrame, len(data))
	}
	flags := data[0]
	if flags&^FlagCompressed != 0 {
		return fmt.Errorf("%w: unknown flags %#x", ErrMalformedFrame, flags)
	}
	n := binary.BigEndian.Uint32(data[1:HeaderSize])
	if int(n) != len(data)-HeaderSize {
		return fmt.Errorf("%w: length %d, have %d", ErrMalformedFrame, n, len(data)-HeaderSize)
	}

	payload := data[HeaderSize:]
	if flags&FlagCompressed != 0 {
		var err error
		if payload, err = decompressLZ4(payload); err != nil {
			return err
		}
	}
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

// IsCompressed reports whether an encoded frame has the compression flag.
func IsCompressed(data []byte) bool {
	return len(data) > 0 && data[0]&FlagCompressed != 0
}

// EncodeFrame encodes a server frame. Frames carrying a snapshot are always
// compressed.
func EncodeFrame(f *Frame) ([]byte, error) {
	return Encode(f, f.HasSnapshot())
}

// DecodeFrame decodes a server frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := Decode(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// EncodeBatch encodes a client input batch.
func EncodeBatch(b *ClientBatch) ([]byte, error) {
	return Encode(b, false)
}

// DecodeBatch decodes a client input batch.
func DecodeBatch(data []byte) (*ClientBatch, error) {
	var b ClientBatch
	if err := Decode(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func compressLZ4(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	out, err := io.ReadAll(io.LimitReader(zr, MaxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(out) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload too large", ErrMalformedFrame)
	}
	return out, nil
}

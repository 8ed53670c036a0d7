package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameLen caps a frame's payload. A peer announcing a larger frame
// is committing a protocol error and is dropped without decoding.
const MaxFrameLen = 1 << 20

var (
	// ErrFrameTooLarge is returned when a frame header announces a
	// payload over MaxFrameLen.
	ErrFrameTooLarge = errors.New("frame exceeds maximum length")
	// ErrEmptyFrame is returned for a zero-length frame.
	ErrEmptyFrame = errors.New("empty frame")
)

// WritePrefixed serializes msg and writes it as one length-prefixed
// frame: a 4-byte big-endian payload length followed by the payload.
// The frame is assembled in memory and written with a single Write. A
// Write that fails (for example on a deadline) may already have put
// part of the frame on the stream; the stream is then not reusable.
func WritePrefixed(w io.Writer, msg interface{}) error {
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if len(payload) > MaxFrameLen {
		return ErrFrameTooLarge
	}
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	if _, err := w.Write(frame); err != nil {
		return err
	}
	return nil
}

// ReadPrefixed reads exactly one frame from r and decodes its payload
// into msg. An oversized length header fails before the payload is
// read; EOF in the middle of a frame surfaces as io.ErrUnexpectedEOF,
// which is fatal for the connection.
func ReadPrefixed(r io.Reader, msg interface{}) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > MaxFrameLen {
		return ErrFrameTooLarge
	}
	if n == 0 {
		return ErrEmptyFrame
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if err := cbor.Unmarshal(payload, msg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// ReadMessage reads and validates one client message.
func ReadMessage(r io.Reader) (*ClientMessage, error) {
	var msg ClientMessage
	if err := ReadPrefixed(r, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReadResponse reads and validates one server response.
func ReadResponse(r io.Reader) (*ServerResponse, error) {
	var resp ServerResponse
	if err := ReadPrefixed(r, &resp); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

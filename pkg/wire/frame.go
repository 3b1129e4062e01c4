package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameHeaderSize is the u32 big-endian length prefix.
const frameHeaderSize = 4

// WriteFrame writes one length-prefixed frame wrapping an encoded batch
// table.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxBatchBytes {
		return &ValidationError{
			Reason: fmt.Sprintf("frame body is %d bytes, limit is %d", len(body), MaxBatchBytes),
		}
	}

	frame := make([]byte, frameHeaderSize+len(body))
	binary.BigEndian.PutUint32(frame[:frameHeaderSize], uint32(len(body)))
	copy(frame[frameHeaderSize:], body)

	_, err := w.Write(frame)
	return err
}

// Frame builds the on-wire bytes for an encoded batch table without
// writing them.
func Frame(body []byte) ([]byte, error) {
	frame := make([]byte, frameHeaderSize+len(body))
	if len(body) > MaxBatchBytes {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("frame body is %d bytes, limit is %d", len(body), MaxBatchBytes),
		}
	}
	binary.BigEndian.PutUint32(frame[:frameHeaderSize], uint32(len(body)))
	copy(frame[frameHeaderSize:], body)
	return frame, nil
}

// ReadFrame reads one length-prefixed frame and returns the batch table
// bytes. io.EOF is returned unchanged when the stream ends cleanly
// between frames.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	n := binary.BigEndian.Uint32(header[:])
	if n > MaxBatchBytes {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("frame declares %d bytes, limit is %d", n, MaxBatchBytes),
		}
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}
	return body, nil
}

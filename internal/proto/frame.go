package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
)

// HeaderSize is the size of the big-endian length prefix in front of every frame.
const HeaderSize = 4

// ErrFrameTooLarge reports a frame whose declared length exceeds the limit.
// ReadFrame has already skipped its body when returning it.
var ErrFrameTooLarge = errors.New("frame too large")

// ReadFrame reads one length-prefixed frame from r.
// io.EOF is returned only when the stream ends cleanly between frames.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if maxSize > 0 && uint64(size) > uint64(maxSize) {
		if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
			return nil, truncated(err)
		}
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, size, maxSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, truncated(err)
	}
	return payload, nil
}

// WriteFrame writes payload with its length prefix in a single vectored write.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	bufs := net.Buffers{header[:], payload}
	_, err := bufs.WriteTo(w)
	return err
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

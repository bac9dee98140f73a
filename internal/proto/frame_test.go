package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFramesKeepBoundariesOnOneStream(t *testing.T) {
	var stream bytes.Buffer
	payloads := []string{"hello", "", "bob: hi|there", strings.Repeat("x", 70000)}
	for _, p := range payloads {
		if err := WriteFrame(&stream, []byte(p)); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}

	for i, want := range payloads {
		got, err := ReadFrame(&stream, 1<<20)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if string(got) != want {
			t.Fatalf("frame %d: got %d bytes, want %d", i, len(got), len(want))
		}
	}

	if _, err := ReadFrame(&stream, 1<<20); !errors.Is(err, io.EOF) {
		t.Fatalf("expected clean EOF after last frame, got %v", err)
	}
}

func TestReadFrameSkipsOversizedFrame(t *testing.T) {
	var stream bytes.Buffer
	_ = WriteFrame(&stream, bytes.Repeat([]byte("a"), 64))
	_ = WriteFrame(&stream, []byte("next"))

	_, err := ReadFrame(&stream, 16)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}

	got, err := ReadFrame(&stream, 16)
	if err != nil {
		t.Fatalf("stream should stay aligned after skipping: %v", err)
	}
	if string(got) != "next" {
		t.Fatalf("unexpected frame after skip: %q", got)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "partial header", raw: []byte{0, 0}},
		{name: "partial body", raw: append(binary.BigEndian.AppendUint32(nil, 10), []byte("abc")...)},
		{name: "missing body", raw: binary.BigEndian.AppendUint32(nil, 3)},
		{name: "oversized and cut", raw: append(binary.BigEndian.AppendUint32(nil, 100), []byte("abc")...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.raw), 50)
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
			}
		})
	}
}

func TestWriteFrameHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte("hey")); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := []byte{0, 0, 0, 3, 'h', 'e', 'y'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x, want % x", buf.Bytes(), want)
	}
}

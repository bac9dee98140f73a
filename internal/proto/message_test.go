package proto

import (
	"bytes"
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := map[string]Kind{
		"hello":                 KindText,
		"[IMAGE]|bob|a.png|QQ==": KindImage,
		"[FILE]|bob|a.txt|QQ==":  KindFile,
		"[IMAGE] not tagged":    KindText,
		"[FILE]":                KindText,
		"":                      KindText,
	}
	for payload, want := range tests {
		if got := Classify([]byte(payload)); got != want {
			t.Errorf("Classify(%q) = %v, want %v", payload, got, want)
		}
	}
}

func TestParseAttachmentRejoinsBody(t *testing.T) {
	att, err := ParseAttachment("[FILE]|alice|report.pdf|AAA|BBB|")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if att.Kind != KindFile || att.User != "alice" || att.Filename != "report.pdf" {
		t.Fatalf("unexpected header fields: %+v", att)
	}
	if att.Body != "AAA|BBB|" {
		t.Fatalf("body not rebuilt: %q", att.Body)
	}
	if att.String() != "[FILE]|alice|report.pdf|AAA|BBB|" {
		t.Fatalf("String() must reproduce the payload, got %q", att.String())
	}
}

func TestParseAttachmentErrors(t *testing.T) {
	if _, err := ParseAttachment("[IMAGE]|bob|pic.png"); !errors.Is(err, ErrMalformedAttachment) {
		t.Fatalf("expected ErrMalformedAttachment, got %v", err)
	}
	if _, err := ParseAttachment("[VIDEO]|bob|a|b"); !errors.Is(err, ErrMalformedAttachment) {
		t.Fatalf("expected ErrMalformedAttachment for unknown tag, got %v", err)
	}

	att, err := ParseAttachment("[IMAGE]|bob|pic.png|not base64!")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := att.Decode(); !errors.Is(err, ErrInvalidAttachmentData) {
		t.Fatalf("expected ErrInvalidAttachmentData, got %v", err)
	}
}

func TestNewAttachmentDecodes(t *testing.T) {
	data := []byte{0x00, 0xff, 0x7c, '|', 0x10}
	att := NewAttachment(KindImage, "bob", "dot.png", data)

	parsed, err := ParseAttachment(att.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := parsed.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got % x, want % x", got, data)
	}
}

func TestFormatChat(t *testing.T) {
	if got := FormatChat("bob", "hi"); got != "bob: hi" {
		t.Fatalf("got %q", got)
	}
}

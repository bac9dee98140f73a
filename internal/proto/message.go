package proto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an inbound chat payload.
type Kind int

const (
	// KindText is any payload without an attachment tag.
	KindText Kind = iota
	// KindImage is an [IMAGE] attachment.
	KindImage
	// KindFile is a [FILE] attachment.
	KindFile
)

const (
	// ImageTag opens an image attachment payload.
	ImageTag = "[IMAGE]"
	// FileTag opens a file attachment payload.
	FileTag = "[FILE]"
	// Separator delimits attachment fields.
	Separator = "|"

	attachmentFields = 4
)

var (
	// ErrMalformedAttachment is returned when an attachment has fewer than four fields.
	ErrMalformedAttachment = errors.New("malformed attachment")
	// ErrInvalidAttachmentData is returned when the attachment body is not valid base64.
	ErrInvalidAttachmentData = errors.New("invalid attachment data")
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindFile:
		return "file"
	default:
		return "text"
	}
}

// Tag returns the wire tag for attachment kinds and "" for text.
func (k Kind) Tag() string {
	switch k {
	case KindImage:
		return ImageTag
	case KindFile:
		return FileTag
	default:
		return ""
	}
}

// Classify looks only at the payload prefix.
func Classify(payload []byte) Kind {
	s := string(payload)
	switch {
	case strings.HasPrefix(s, ImageTag+Separator):
		return KindImage
	case strings.HasPrefix(s, FileTag+Separator):
		return KindFile
	default:
		return KindText
	}
}

// Attachment is a parsed TAG|user|filename|base64 payload.
type Attachment struct {
	Kind     Kind
	User     string
	Filename string
	Body     string
}

// ParseAttachment splits an attachment payload. Everything after the third
// separator belongs to the body, separators included.
func ParseAttachment(payload string) (Attachment, error) {
	parts := strings.Split(payload, Separator)
	if len(parts) < attachmentFields {
		return Attachment{}, fmt.Errorf("%w: %d fields", ErrMalformedAttachment, len(parts))
	}

	kind := Classify([]byte(payload))
	if kind == KindText {
		return Attachment{}, fmt.Errorf("%w: unknown tag %q", ErrMalformedAttachment, parts[0])
	}

	return Attachment{
		Kind:     kind,
		User:     parts[1],
		Filename: parts[2],
		Body:     strings.Join(parts[attachmentFields-1:], Separator),
	}, nil
}

// Decode returns the raw attachment bytes.
func (a Attachment) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAttachmentData, err)
	}
	return data, nil
}

// String renders the attachment back into its wire form.
func (a Attachment) String() string {
	return strings.Join([]string{a.Kind.Tag(), a.User, a.Filename, a.Body}, Separator)
}

// NewAttachment encodes data into an attachment of the given kind.
func NewAttachment(kind Kind, user, filename string, data []byte) Attachment {
	return Attachment{
		Kind:     kind,
		User:     user,
		Filename: filename,
		Body:     base64.StdEncoding.EncodeToString(data),
	}
}

// FormatChat renders the relayed form of a plain text message.
func FormatChat(user, text string) string {
	return user + ": " + text
}

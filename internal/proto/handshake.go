package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// StatusAuthorized is the only status the server ever sends back.
const StatusAuthorized = "authorized"

var (
	// ErrMalformedHandshake is returned when the credential frame is not a JSON object of strings.
	ErrMalformedHandshake = errors.New("malformed handshake")
	// ErrMissingUsername is returned when username is absent or empty.
	ErrMissingUsername = errors.New("missing username")
	// ErrMissingKey is returned when key is absent.
	ErrMissingKey = errors.New("missing key")
)

// Credentials is the first frame a client sends.
type Credentials struct {
	Username *string `json:"username"`
	Key      *string `json:"key"`
}

// Status is the server acknowledgement of a successful handshake.
type Status struct {
	Status string `json:"status"`
}

// ParseCredentials decodes a credential frame. An empty key is allowed here;
// whether it matches is the caller's decision.
func ParseCredentials(payload []byte) (username, key string, err error) {
	var creds Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedHandshake, err)
	}
	if creds.Username == nil || *creds.Username == "" {
		return "", "", ErrMissingUsername
	}
	if creds.Key == nil {
		return "", "", ErrMissingKey
	}
	return *creds.Username, *creds.Key, nil
}

// EncodeCredentials builds the credential frame sent by clients.
func EncodeCredentials(username, key string) ([]byte, error) {
	return json.Marshal(Credentials{Username: &username, Key: &key})
}

// AuthorizedAck returns the acknowledgement payload, {"status":"authorized"}.
func AuthorizedAck() []byte {
	ack, _ := json.Marshal(Status{Status: StatusAuthorized})
	return ack
}

// IsAuthorizedAck reports whether payload is a successful handshake acknowledgement.
func IsAuthorizedAck(payload []byte) bool {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return false
	}
	var st Status
	if err := json.Unmarshal(payload, &st); err != nil {
		return false
	}
	return st.Status == StatusAuthorized
}

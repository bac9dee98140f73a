package core

import (
	"testing"
	"time"
)

func newNamedClient(t *testing.T, id int64, name string, outbox int) *Client {
	t.Helper()

	c := NewClient(id, "test", outbox, nil)
	if err := c.SetName(name); err != nil {
		t.Fatalf("set name %q: %v", name, err)
	}
	return c
}

func mustPayload(t *testing.T, c *Client) string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case p := <-c.Outbox():
			return string(p)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("client %d: expected a payload, got none", c.ID)
	return ""
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()

	select {
	case p := <-c.Outbox():
		t.Fatalf("client %d: unexpected payload %q", c.ID, p)
	default:
	}
}

// drain discards everything queued for the given clients.
func drain(clients ...*Client) {
	for _, c := range clients {
		for {
			select {
			case <-c.Outbox():
				continue
			default:
			}
			break
		}
	}
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/vovakirdan/tcprelay/internal/proto"
)

// Connects two clients, sends one line from the first and waits for the
// second to receive it.
func main() {
	if err := run(); err != nil {
		log.Printf("tcp_smoke: %v", err)
		os.Exit(1)
	}
}

type peer struct {
	conn net.Conn
	r    *bufio.Reader
}

func run() error {
	addr := flag.String("addr", "127.0.0.1:9000", "relay address")
	key := flag.String("key", "", "shared key")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	sender, err := connect(ctx, *addr, "smoke-sender", *key, deadline)
	if err != nil {
		return err
	}
	defer sender.conn.Close()

	receiver, err := connect(ctx, *addr, "smoke-receiver", *key, deadline)
	if err != nil {
		return err
	}
	defer receiver.conn.Close()

	if err := proto.WriteFrame(sender.conn, []byte(*text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	want := proto.FormatChat("smoke-sender", *text)
	for {
		payload, err := proto.ReadFrame(receiver.r, 1<<20)
		if err != nil {
			return fmt.Errorf("waiting for %q: %w", want, err)
		}
		log.Printf("receiver got: %s", payload)
		if string(payload) == want {
			log.Printf("smoke test passed")
			return nil
		}
	}
}

func connect(ctx context.Context, addr, user, key string, deadline time.Time) (*peer, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", user, err)
	}
	_ = conn.SetDeadline(deadline)

	creds, err := proto.EncodeCredentials(user, key)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := proto.WriteFrame(conn, creds); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake %s: %w", user, err)
	}

	r := bufio.NewReader(conn)
	ack, err := proto.ReadFrame(r, 1<<20)
	if err != nil || !proto.IsAuthorizedAck(ack) {
		conn.Close()
		return nil, fmt.Errorf("handshake %s rejected: %q %v", user, ack, err)
	}
	return &peer{conn: conn, r: r}, nil
}

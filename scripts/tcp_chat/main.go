package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/vovakirdan/tcprelay/internal/proto"
)

const maxAttachmentBytes = 5 * 1024 * 1024

func main() {
	if err := run(); err != nil {
		log.Printf("tcp_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "127.0.0.1:9000", "relay address")
	user := flag.String("user", "cli-user", "username")
	key := flag.String("key", "", "shared key")
	saveDir := flag.String("save-dir", "", "directory to save received attachments (disabled when empty)")
	maxFrame := flag.Int("max-frame", 8<<20, "largest frame accepted from the relay")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := net.DialTimeout("tcp4", *addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	creds, err := proto.EncodeCredentials(*user, *key)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := proto.WriteFrame(conn, creds); err != nil {
		return fmt.Errorf("send credentials: %w", err)
	}

	reader := bufio.NewReader(conn)
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	ack, err := proto.ReadFrame(reader, *maxFrame)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if !proto.IsAuthorizedAck(ack) {
		return fmt.Errorf("unexpected handshake reply %q", ack)
	}
	_ = conn.SetReadDeadline(time.Time{})

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println("Type messages and press Enter to send. /image <path> and /file <path> send attachments. Ctrl+C to exit.")

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	readErr := make(chan error, 1)
	go func() {
		readErr <- readLoop(reader, *maxFrame, *saveDir)
		stop()
	}()

	writeLoop(ctx, conn, *user)

	_ = conn.Close()
	if err := <-readErr; err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func readLoop(r io.Reader, maxFrame int, saveDir string) error {
	for {
		payload, err := proto.ReadFrame(r, maxFrame)
		if err != nil {
			if errors.Is(err, proto.ErrFrameTooLarge) {
				log.Printf("skipped oversized frame: %v", err)
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				fmt.Println("disconnected")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		if proto.Classify(payload) == proto.KindText {
			fmt.Println(string(payload))
			continue
		}
		printAttachment(string(payload), saveDir)
	}
}

func printAttachment(payload, saveDir string) {
	att, err := proto.ParseAttachment(payload)
	if err != nil {
		log.Printf("bad attachment: %v", err)
		return
	}
	data, err := att.Decode()
	if err != nil {
		log.Printf("bad attachment from %s: %v", att.User, err)
		return
	}
	fmt.Printf("[%s] %s sent %s (%d bytes)\n", att.Kind, att.User, att.Filename, len(data))

	if saveDir == "" {
		return
	}
	path := filepath.Join(saveDir, filepath.Base(att.Filename))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		log.Printf("save %s: %v", path, err)
		return
	}
	fmt.Printf("saved to %s\n", path)
}

func writeLoop(ctx context.Context, conn net.Conn, user string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := buildPayload(user, text)
			if err != nil {
				log.Printf("%v", err)
				continue
			}
			if err := proto.WriteFrame(conn, payload); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func buildPayload(user, text string) ([]byte, error) {
	var kind proto.Kind
	var path string
	switch {
	case strings.HasPrefix(text, "/image "):
		kind, path = proto.KindImage, strings.TrimSpace(strings.TrimPrefix(text, "/image "))
	case strings.HasPrefix(text, "/file "):
		kind, path = proto.KindFile, strings.TrimSpace(strings.TrimPrefix(text, "/file "))
	default:
		return []byte(text), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("attachment: %w", err)
	}
	if info.Size() > maxAttachmentBytes {
		return nil, fmt.Errorf("attachment %s is larger than 5 MB", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attachment: %w", err)
	}
	return []byte(proto.NewAttachment(kind, user, strings.ReplaceAll(filepath.Base(path), proto.Separator, "_"), data).String()), nil
}

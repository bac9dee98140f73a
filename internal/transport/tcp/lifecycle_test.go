package tcp

import (
	"errors"
	"net"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/proto"
)

func newStoppedServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(testRelayConfig(), core.NewHub(core.NewJournal(64), nil, nil), nil, nil)
	t.Cleanup(srv.Stop)
	return srv
}

func TestServer_StartRightAfterStopBegins(t *testing.T) {
	srv := newStoppedServer(t)
	if err := srv.Start("127.0.0.1", 0, testKey); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 200; i++ {
		stopped := make(chan struct{})
		go func() {
			srv.Stop()
			close(stopped)
		}()
		for srv.Active() {
			runtime.Gosched()
		}

		if err := srv.Start("127.0.0.1", 0, testKey); err != nil {
			t.Fatalf("iteration %d: start while stopping: %v", i, err)
		}
		<-stopped
		if !srv.Active() || srv.Addr() == "" {
			t.Fatalf("iteration %d: restart was undone by the earlier stop", i)
		}
	}
}

func TestServer_ConcurrentStartStop(t *testing.T) {
	srv := newStoppedServer(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if (g+i)%2 == 0 {
					err := srv.Start("127.0.0.1", 0, testKey)
					if err != nil && !errors.Is(err, ErrAlreadyActive) {
						t.Errorf("start: %v", err)
						return
					}
				} else {
					srv.Stop()
				}
			}
		}(g)
	}
	wg.Wait()

	srv.Stop()
	if srv.Active() || srv.Addr() != "" {
		t.Fatalf("server still listening after final stop")
	}
}

// readUntilClosed drains frames until the server closes the connection.
func readUntilClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, err := proto.ReadFrame(conn, 1<<20); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatalf("connection left open after stop")
			}
			return
		}
	}
}

func TestServer_StopDuringHandshakes(t *testing.T) {
	srv := newStoppedServer(t)

	for round := 0; round < 30; round++ {
		if err := srv.Start("127.0.0.1", 0, testKey); err != nil {
			t.Fatalf("round %d: start: %v", round, err)
		}
		addr := srv.Addr()

		const clients = 5
		conns := make(chan net.Conn, clients)
		var wg sync.WaitGroup
		for i := 0; i < clients; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				conn, err := net.DialTimeout("tcp4", addr, time.Second)
				if err != nil {
					return
				}
				creds, _ := proto.EncodeCredentials("user"+strconv.Itoa(i), testKey)
				_ = proto.WriteFrame(conn, creds)
				conns <- conn
			}(i)
		}

		srv.Stop()
		wg.Wait()
		close(conns)

		if got := len(srv.ListClients()); got != 0 {
			t.Fatalf("round %d: %d clients still registered after stop", round, got)
		}
		for conn := range conns {
			readUntilClosed(t, conn)
			_ = conn.Close()
		}
	}
}

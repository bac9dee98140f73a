package http

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/tcprelay/internal/auth"
	"github.com/vovakirdan/tcprelay/internal/config"
	"github.com/vovakirdan/tcprelay/internal/core"
	"github.com/vovakirdan/tcprelay/internal/metrics"
	"github.com/vovakirdan/tcprelay/internal/transport/tcp"
)

const (
	testOperator = "admin"
	testPassword = "correct horse"
)

var (
	hashOnce   sync.Once
	testHash   string
	errHashing error
)

// fakeRelay records operator calls without opening sockets.
type fakeRelay struct {
	mu        sync.Mutex
	active    bool
	clients   []core.ClientInfo
	direct    map[int64][]string
	broadcast []string
	startErr  error
}

func newFakeRelay(clients ...core.ClientInfo) *fakeRelay {
	return &fakeRelay{active: true, clients: clients, direct: make(map[int64][]string)}
}

func (f *fakeRelay) Start(_ string, _ int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.active {
		return tcp.ErrAlreadyActive
	}
	f.active = true
	return nil
}

func (f *fakeRelay) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.clients = nil
}

func (f *fakeRelay) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeRelay) Addr() string {
	if f.Active() {
		return "127.0.0.1:9000"
	}
	return ""
}

func (f *fakeRelay) ListClients() []core.ClientInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.ClientInfo{}, f.clients...)
}

func (f *fakeRelay) Disconnect(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.clients {
		if c.ID == id {
			f.clients = append(f.clients[:i], f.clients[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeRelay) DisconnectAll() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.clients)
	f.clients = nil
	return n
}

func (f *fakeRelay) SendDirect(id int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if text == "" {
		return core.ErrEmptyMessage
	}
	for _, c := range f.clients {
		if c.ID == id {
			f.direct[id] = append(f.direct[id], text)
			return nil
		}
	}
	return core.ErrClientNotFound
}

func (f *fakeRelay) Broadcast(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if text == "" {
		return core.ErrEmptyMessage
	}
	f.broadcast = append(f.broadcast, text)
	return nil
}

type testEnv struct {
	handler stdhttp.Handler
	relay   Relay
	journal *core.Journal
	auth    *auth.Service
	token   string
}

func operatorHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		testHash, errHashing = auth.HashPassword(testPassword)
	})
	if errHashing != nil {
		t.Fatalf("hash password: %v", errHashing)
	}
	return testHash
}

func newTestEnv(t *testing.T, relay Relay) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Relay.Address = "127.0.0.1"
	cfg.Relay.Port = 0
	cfg.Relay.SharedKey = "s3cret"
	cfg.Admin.LoginRate = 0

	authService := auth.NewService(testOperator, operatorHash(t), &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})
	token, err := authService.IssueToken()
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	journal := core.NewJournal(32)
	disabledLogger := zerolog.Nop()
	server := NewServer(Deps{
		Relay:   relay,
		Journal: journal,
		Auth:    authService,
		Metrics: metrics.New(),
	}, &cfg, &disabledLogger)

	return &testEnv{handler: server.Handler, relay: relay, journal: journal, auth: authService, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	return out
}

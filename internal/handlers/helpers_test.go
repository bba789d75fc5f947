package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/auth"
	"github.com/abrezinsky/basta/internal/handlers"
	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
	"github.com/abrezinsky/basta/internal/repository"
	"github.com/abrezinsky/basta/internal/services"
	"github.com/abrezinsky/basta/internal/testutil"
	"github.com/abrezinsky/basta/internal/websocket"
)

const testSecret = "handlers-test-secret"

type testServer struct {
	t        *testing.T
	repo     *repository.Repository
	rooms    *services.RoomService
	verifier *auth.Verifier
	handler  http.Handler
}

type stubHealth struct{ err error }

func (s stubHealth) Ping(context.Context) error { return s.err }

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithHealth(t, nil)
}

func newTestServerWithHealth(t *testing.T, health handlers.HealthChecker) *testServer {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	log := logger.Discard()

	rooms := services.NewRoomService(log, repo,
		services.NewSubmissionTracker(log, repo),
		services.NewScoringEngine(log, repo))
	rooms.SetLetterSource(func() string { return "M" })

	if health == nil {
		health = repo
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.New(log)
	hub.Start(ctx)

	verifier := auth.NewVerifier(testSecret, "", "")
	h := handlers.New(
		rooms,
		services.NewThemeService(log, repo),
		services.NewResultsService(log, repo),
		verifier,
		hub,
		health,
		log,
		handlers.Options{PublicURL: "http://basta.test", RequestTimeout: 5 * time.Second},
	)

	return &testServer{t: t, repo: repo, rooms: rooms, verifier: verifier, handler: h.Router()}
}

func (s *testServer) token(id models.Identity) string {
	s.t.Helper()
	tok, err := s.verifier.Sign(id, time.Hour)
	if err != nil {
		s.t.Fatalf("Sign failed: %v", err)
	}
	return tok
}

// do sends a request as id. A zero identity sends no token.
func (s *testServer) do(method, path string, id models.Identity, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id.UserID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+s.token(id))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	apiErr := decode[handlers.APIError](t, rec)
	if apiErr.Code != code {
		t.Errorf("expected error code %q, got %q (%s)", code, apiErr.Code, apiErr.Message)
	}
}

var zeroIdentity models.Identity

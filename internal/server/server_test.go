package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcanaland/lumen/internal/card"
	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/history"
	"github.com/arcanaland/lumen/internal/oracle"
	"github.com/arcanaland/lumen/internal/quota"
	"github.com/arcanaland/lumen/internal/session"
	"github.com/arcanaland/lumen/internal/store"
)

type stubOracle struct{}

func (stubOracle) ClassifyIntent(ctx context.Context, question string) oracle.Intent {
	return oracle.IntentCareer
}

func (stubOracle) GenerateReading(ctx context.Context, req oracle.ReadingRequest) (oracle.Reading, bool) {
	r := oracle.FallbackReading()
	r.Summary = "The path opens."
	return r, true
}

type testServer struct {
	srv      *Server
	h        http.Handler
	profiles *quota.MemoryProfiles
	history  *history.Log
}

// ctxProfiles fails every call made with a done context, like a network store
type ctxProfiles struct {
	*quota.MemoryProfiles
}

func (p ctxProfiles) TryIncrement(ctx context.Context, userID string, limit int) (quota.Profile, error) {
	if err := ctx.Err(); err != nil {
		return quota.Profile{}, err
	}
	return p.MemoryProfiles.TryIncrement(ctx, userID, limit)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	decks, err := deck.LoadAll("")
	require.NoError(t, err)

	ts := &testServer{
		profiles: quota.NewMemoryProfiles(
			quota.Profile{UserID: "alice"},
			quota.Profile{UserID: "bob", UsageCount: 10},
		),
		history: history.Load(context.Background(), store.NewMemoryBlobs(), 0, nil),
	}
	gate := quota.NewGate(ctxProfiles{ts.profiles}, 10, nil)

	ts.srv = New(Config{
		NewMachine: func() *session.Machine {
			return session.New(session.Options{
				Decks:       decks,
				Oracle:      stubOracle{},
				Quota:       gate,
				History:     ts.history,
				InvertRatio: 0.3,
				LockWindow:  time.Millisecond,
				SettleDelay: time.Millisecond,
				Rand:        rand.New(rand.NewSource(1)),
			})
		},
		History: ts.history,
		Usage:   gate,
	})
	ts.h = ts.srv.Routes()
	t.Cleanup(ts.srv.closeAll)
	return ts
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path string, body any, user string) (int, response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func (ts *testServer) create(t *testing.T) string {
	t.Helper()
	code, resp := ts.do(t, http.MethodPost, "/api/sessions", nil, "")
	require.Equal(t, http.StatusCreated, code)

	var created struct {
		ID    uuid.UUID        `json:"id"`
		State session.Snapshot `json:"state"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, session.Lobby, created.State.Phase)
	return "/api/sessions/" + created.ID.String()
}

func state(t *testing.T, resp response) session.Snapshot {
	t.Helper()
	require.Nil(t, resp.Error)
	var s session.Snapshot
	require.NoError(t, json.Unmarshal(resp.Data, &s))
	return s
}

func TestRitualOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	base := ts.create(t)

	code, resp := ts.do(t, http.MethodPost, base+"/deck", map[string]string{"deck": "LENORMAND"}, "")
	require.Equal(t, http.StatusOK, code)
	s := state(t, resp)
	assert.Equal(t, session.Inquiry, s.Phase)
	assert.Equal(t, 3, s.TargetCount)

	code, _ = ts.do(t, http.MethodPost, base+"/inquiry", map[string]string{"question": "New job?"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp = ts.do(t, http.MethodPost, base+"/inquiry", map[string]string{"question": "New job?"}, "alice")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.Shuffling, state(t, resp).Phase)

	code, _ = ts.do(t, http.MethodPost, base+"/shuffle/complete", nil, "")
	require.Equal(t, http.StatusOK, code)
	code, resp = ts.do(t, http.MethodPost, base+"/cut/complete", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 36, state(t, resp).Remaining)

	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool {
			_, resp := ts.do(t, http.MethodGet, base, nil, "")
			return !state(t, resp).DrawLocked
		}, 2*time.Second, 5*time.Millisecond)

		_, resp = ts.do(t, http.MethodGet, base+"/candidates", nil, "")
		var candidates []card.Card
		require.NoError(t, json.Unmarshal(resp.Data, &candidates))
		require.NotEmpty(t, candidates)

		code, _ = ts.do(t, http.MethodPost, base+"/draw", map[string]int{"cardId": candidates[0].ID}, "")
		require.Equal(t, http.StatusOK, code)
	}

	code, _ = ts.do(t, http.MethodPost, base+"/reveal/complete", nil, "")
	require.Equal(t, http.StatusOK, code)

	require.Eventually(t, func() bool {
		_, resp := ts.do(t, http.MethodGet, base+"?wait=100ms", nil, "")
		s = state(t, resp)
		return s.Phase == session.Reading && s.HistoryID != ""
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "The path opens.", s.Reading.Summary)
	assert.Equal(t, oracle.IntentCareer, s.Intent)
	for _, c := range s.Cards {
		assert.False(t, c.Inverted)
	}

	code, resp = ts.do(t, http.MethodGet, "/api/quota", nil, "alice")
	require.Equal(t, http.StatusOK, code)
	var usage quota.Usage
	require.NoError(t, json.Unmarshal(resp.Data, &usage))
	assert.Equal(t, 9, usage.Remaining)

	code, resp = ts.do(t, http.MethodGet, "/api/history/"+s.HistoryID, nil, "")
	require.Equal(t, http.StatusOK, code)
	var e history.Entry
	require.NoError(t, json.Unmarshal(resp.Data, &e))
	assert.Equal(t, "New job?", e.Question)

	code, resp = ts.do(t, http.MethodPost, base+"/again", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.Lobby, state(t, resp).Phase)

	code, resp = ts.do(t, http.MethodPost, base+"/recall/"+s.HistoryID, nil, "")
	require.Equal(t, http.StatusOK, code)
	recalled := state(t, resp)
	assert.Equal(t, session.Reading, recalled.Phase)
	assert.Equal(t, "New job?", recalled.Question)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	base := ts.create(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		user   string
		status int
		code   string
	}{
		{"unknown deck", http.MethodPost, base + "/deck", map[string]string{"deck": "RUNES"}, "", http.StatusBadRequest, "bad_request"},
		{"malformed body", http.MethodPost, base + "/count", "three", "", http.StatusBadRequest, "bad_request"},
		{"wrong phase", http.MethodPost, base + "/shuffle/complete", nil, "", http.StatusConflict, "conflict"},
		{"missing card id", http.MethodPost, base + "/draw", map[string]any{}, "", http.StatusBadRequest, "bad_request"},
		{"unknown session", http.MethodGet, "/api/sessions/" + uuid.NewString(), nil, "", http.StatusNotFound, "not_found"},
		{"bad session id", http.MethodGet, "/api/sessions/nope", nil, "", http.StatusBadRequest, "bad_request"},
		{"unknown history", http.MethodGet, "/api/history/nope", nil, "", http.StatusNotFound, "not_found"},
		{"quota without user", http.MethodGet, "/api/quota", nil, "", http.StatusUnauthorized, "unauthorized"},
		{"bad wait", http.MethodGet, base + "?wait=soon", nil, "", http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := ts.do(t, tt.method, tt.path, tt.body, tt.user)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestQuotaExhaustedOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	base := ts.create(t)

	_, _ = ts.do(t, http.MethodPost, base+"/deck", map[string]string{"deck": "TAROT"}, "")
	code, resp := ts.do(t, http.MethodPost, base+"/inquiry", map[string]string{"question": "Again?"}, "bob")
	assert.Equal(t, http.StatusPaymentRequired, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "quota_exceeded", resp.Error.Code)

	_, resp = ts.do(t, http.MethodGet, base, nil, "")
	assert.Equal(t, session.Inquiry, state(t, resp).Phase)
}

func TestInquiryReservesAfterClientCancel(t *testing.T) {
	ts := newTestServer(t)
	base := ts.create(t)
	_, _ = ts.do(t, http.MethodPost, base+"/deck", map[string]string{"deck": "TAROT"}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := bytes.NewBufferString(`{"question":"Will it last?"}`)
	req := httptest.NewRequest(http.MethodPost, base+"/inquiry", body).WithContext(ctx)
	req.Header.Set(UserHeader, "alice")
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	p, err := ts.profiles.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsageCount)
}

func TestDeleteReleasesReservation(t *testing.T) {
	ts := newTestServer(t)
	base := ts.create(t)
	_, _ = ts.do(t, http.MethodPost, base+"/deck", map[string]string{"deck": "TAROT"}, "")
	code, _ := ts.do(t, http.MethodPost, base+"/inquiry", map[string]string{"question": "Will it last?"}, "alice")
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodDelete, base, nil, "")
	require.Equal(t, http.StatusNoContent, code)

	p, err := ts.profiles.GetProfile(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, p.UsageCount)
}

func TestLongPollReturnsOnChange(t *testing.T) {
	ts := newTestServer(t)
	base := ts.create(t)

	done := make(chan session.Snapshot, 1)
	go func() {
		_, resp := ts.do(t, http.MethodGet, base+"?wait=5s", nil, "")
		var s session.Snapshot
		_ = json.Unmarshal(resp.Data, &s)
		done <- s
	}()

	time.Sleep(20 * time.Millisecond)
	_, _ = ts.do(t, http.MethodPost, base+"/library/open", nil, "")

	select {
	case s := <-done:
		assert.Equal(t, session.Library, s.Phase)
	case <-time.After(10 * time.Second):
		t.Fatal("long poll did not return on state change")
	}
}

func TestDeleteAndSweep(t *testing.T) {
	ts := newTestServer(t)
	base := ts.create(t)

	code, _ := ts.do(t, http.MethodDelete, base, nil, "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = ts.do(t, http.MethodGet, base, nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	ts.create(t)
	ts.create(t)
	assert.Equal(t, 0, ts.srv.sweep(time.Now()))
	assert.Equal(t, 2, ts.srv.sweep(time.Now().Add(2*DefaultIdleTimeout)))
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lumen_")
}

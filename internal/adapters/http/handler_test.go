package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/tonal/internal/adapters/http"
	"github.com/PabloGalante/tonal/internal/adapters/llm"
	"github.com/PabloGalante/tonal/internal/adapters/storage/memory"
	"github.com/PabloGalante/tonal/internal/app/editor"
	"github.com/PabloGalante/tonal/internal/app/gateway"
	"github.com/PabloGalante/tonal/internal/domain"
)

type recordingTransformer struct {
	calls    atomic.Int32
	lastTone atomic.Int32
	err      error
	delay    time.Duration
}

func (r *recordingTransformer) Transform(ctx context.Context, text string, tone domain.Tone) (string, error) {
	r.calls.Add(1)
	r.lastTone.Store(int32(tone))
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.err != nil {
		return "", r.err
	}
	return llm.NewMockTransformer().Transform(ctx, text, tone)
}

func newTestServer(t *testing.T, tr domain.Transformer, opts gateway.Options) http.Handler {
	t.Helper()

	sessionStore := memory.NewSessionStore(0)
	svc := editor.NewService(sessionStore, gateway.New(tr, opts))

	return httpadapter.NewServer(svc)
}

func do(t *testing.T, srv http.Handler, method, path, body string) (int, map[string]string) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	var out map[string]string
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body=%s", w.Body.String())
	}
	return w.Code, out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestTransformUndoRedoReset(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})

	code, out := do(t, srv, http.MethodPost, "/api/transform", `{"text":"hello","tone":20,"session_id":"abc"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"transformed": "HELLO-ish", "session_id": "abc"}, out)

	code, out = do(t, srv, http.MethodPost, "/api/undo", `{"session_id":"abc"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"text": ""}, out)

	code, out = do(t, srv, http.MethodPost, "/api/redo", `{"session_id":"abc"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"text": "HELLO-ish"}, out)

	code, out = do(t, srv, http.MethodPost, "/api/reset", `{"session_id":"abc"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "History reset", out["message"])

	code, out = do(t, srv, http.MethodPost, "/api/undo", `{"session_id":"abc"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "No more history to undo", out["error"])
}

func TestRedoAtNewestState(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})

	code, out := do(t, srv, http.MethodPost, "/api/redo", `{"session_id":"new"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "No more history to redo", out["error"])
}

func TestTransformMintsSessionID(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})

	code, out := do(t, srv, http.MethodPost, "/api/transform", `{"text":"hi","tone":50}`)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, out["session_id"])

	code, out = do(t, srv, http.MethodPost, "/api/undo", `{"session_id":"`+out["session_id"]+`"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "", out["text"])
}

func TestTransformDefaultsTone(t *testing.T) {
	tr := &recordingTransformer{}
	srv := newTestServer(t, tr, gateway.Options{})

	code, _ := do(t, srv, http.MethodPost, "/api/transform", `{"text":"hi","session_id":"s"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int32(domain.DefaultTone), tr.lastTone.Load())
}

func TestTransformRejectsInvalidInput(t *testing.T) {
	tr := &recordingTransformer{}
	srv := newTestServer(t, tr, gateway.Options{})

	cases := map[string]string{
		"empty text":    `{"text":"","tone":50,"session_id":"s"}`,
		"blank text":    `{"text":"   ","tone":50,"session_id":"s"}`,
		"tone too high": `{"text":"x","tone":150,"session_id":"s"}`,
		"negative tone": `{"text":"x","tone":-5,"session_id":"s"}`,
		"fraction tone": `{"text":"x","tone":20.5,"session_id":"s"}`,
		"not json":      `{"text":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			code, out := do(t, srv, http.MethodPost, "/api/transform", body)
			require.Equal(t, http.StatusBadRequest, code)
			require.NotEmpty(t, out["error"])
		})
	}

	require.Equal(t, int32(0), tr.calls.Load())
}

func TestTransformCoercesIntegralTone(t *testing.T) {
	for name, tone := range map[string]string{
		"integer":        `20`,
		"integral float": `20.0`,
		"numeric string": `"20"`,
	} {
		t.Run(name, func(t *testing.T) {
			tr := &recordingTransformer{}
			srv := newTestServer(t, tr, gateway.Options{})

			code, _ := do(t, srv, http.MethodPost, "/api/transform", `{"text":"hi","tone":`+tone+`,"session_id":"s"}`)
			require.Equal(t, http.StatusOK, code)
			require.Equal(t, int32(20), tr.lastTone.Load())
		})
	}
}

func TestTransformRejectsBadToneWithToneMessage(t *testing.T) {
	tr := &recordingTransformer{}
	srv := newTestServer(t, tr, gateway.Options{})

	for _, tone := range []string{`20.5`, `"loud"`, `true`, `[20]`, `1e300`} {
		code, out := do(t, srv, http.MethodPost, "/api/transform", `{"text":"hi","tone":`+tone+`,"session_id":"s"}`)
		require.Equal(t, http.StatusBadRequest, code, tone)
		require.Equal(t, "tone must be an integer between 0 and 100", out["error"], tone)
	}
	require.Equal(t, int32(0), tr.calls.Load())
}

func TestTransformUpstreamFailure(t *testing.T) {
	tr := &recordingTransformer{err: errors.New("boom")}
	srv := newTestServer(t, tr, gateway.Options{})

	code, out := do(t, srv, http.MethodPost, "/api/transform", `{"text":"hi","tone":50,"session_id":"s"}`)
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, "API call failed", out["error"])

	// Nothing was committed.
	code, _ = do(t, srv, http.MethodPost, "/api/undo", `{"session_id":"s"}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestTransformUpstreamTimeout(t *testing.T) {
	tr := &recordingTransformer{delay: time.Second}
	srv := newTestServer(t, tr, gateway.Options{Timeout: 20 * time.Millisecond})

	code, out := do(t, srv, http.MethodPost, "/api/transform", `{"text":"hi","tone":50,"session_id":"s"}`)
	require.Equal(t, http.StatusGatewayTimeout, code)
	require.Equal(t, "transform timed out", out["error"])
}

func TestSessionIDRequired(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})

	for _, path := range []string{"/api/undo", "/api/redo", "/api/reset"} {
		code, out := do(t, srv, http.MethodPost, path, `{}`)
		require.Equal(t, http.StatusBadRequest, code, path)
		require.Equal(t, "Session ID required", out["error"], path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})

	code, out := do(t, srv, http.MethodGet, "/api/undo", "")
	require.Equal(t, http.StatusMethodNotAllowed, code)
	require.Equal(t, "method not allowed", out["error"])
}

func TestUnsupportedContentType(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/undo", strings.NewReader(`session_id=abc`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/transform", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, llm.NewMockTransformer(), gateway.Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestStaleTransformIsConflict(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	tr := blockingTransformer{started: started, release: release}
	srv := newTestServer(t, tr, gateway.Options{Policy: gateway.DiscardAfterReset})

	type result struct {
		code int
		out  map[string]string
	}
	done := make(chan result, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/transform",
			strings.NewReader(`{"text":"hi","tone":50,"session_id":"s"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)

		var out map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		done <- result{code: w.Code, out: out}
	}()

	<-started
	code, _ := do(t, srv, http.MethodPost, "/api/reset", `{"session_id":"s"}`)
	require.Equal(t, http.StatusOK, code)
	close(release)

	res := <-done
	require.Equal(t, http.StatusConflict, res.code)
	require.NotEmpty(t, res.out["error"])
}

type blockingTransformer struct {
	started chan<- struct{}
	release <-chan struct{}
}

func (b blockingTransformer) Transform(_ context.Context, text string, _ domain.Tone) (string, error) {
	b.started <- struct{}{}
	<-b.release
	return strings.ToUpper(text), nil
}

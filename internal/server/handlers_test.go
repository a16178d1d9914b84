package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/kbchat-go/internal/chat"
	"github.com/54b3r/kbchat-go/internal/rag"
)

func Test_Chat_ModelReply(t *testing.T) {
	t.Parallel()
	a := &fakeAnswerer{resp: chat.Response{Text: "We offer AI consulting.", Succeeded: true, Source: chat.SourceModel}}
	s := newTestServer(t, a)

	w := do(t, s, http.MethodPost, "/api/chat",
		`{"query":"  What do you offer?  ","metadata":{"name":" Ann ","email":"ann@example.com","service":"ai"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[chatResponse](t, w)
	if resp.Text != "We offer AI consulting." || !resp.Succeeded || resp.SourceTag != "model" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", resp.Timestamp, err)
	}

	if a.lastReq.Query != "What do you offer?" {
		t.Errorf("query not trimmed: %q", a.lastReq.Query)
	}
	want := rag.Metadata{Name: "Ann", Email: "ann@example.com", Service: "ai"}
	if a.lastReq.Metadata != want {
		t.Errorf("metadata: got %+v, want %+v", a.lastReq.Metadata, want)
	}
	if a.lastReq.RequestID == "" {
		t.Error("request id not propagated to the assistant")
	}
}

func Test_Chat_LegacyFieldNames(t *testing.T) {
	t.Parallel()
	a := &fakeAnswerer{resp: chat.Response{Text: "hi", Succeeded: true, Source: chat.SourceFallback}}
	s := newTestServer(t, a)

	w := do(t, s, http.MethodPost, "/api/chat", `{"message":"hello","formData":{"company":"Acme"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", w.Code, w.Body.String())
	}
	if a.lastReq.Query != "hello" {
		t.Errorf("query: got %q", a.lastReq.Query)
	}
	if a.lastReq.Metadata.Company != "Acme" {
		t.Errorf("company: got %q", a.lastReq.Metadata.Company)
	}
	if got := decodeBody[chatResponse](t, w).SourceTag; got != "fallback" {
		t.Errorf("sourceTag: got %q", got)
	}
}

func Test_Chat_QueryWinsOverMessage(t *testing.T) {
	t.Parallel()
	a := &fakeAnswerer{resp: chat.Response{Text: "x", Succeeded: true, Source: chat.SourceModel}}
	s := newTestServer(t, a)

	do(t, s, http.MethodPost, "/api/chat", `{"query":"new","message":"old"}`)
	if a.lastReq.Query != "new" {
		t.Errorf("query: got %q, want new", a.lastReq.Query)
	}
}

func Test_Chat_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "invalid json", body: `{"query":`},
		{name: "missing query", body: `{"metadata":{"name":"Ann"}}`, wantField: "query"},
		{name: "blank query", body: `{"query":"   "}`, wantField: "query"},
		{name: "bad email", body: `{"query":"hi","metadata":{"email":"not-an-email"}}`, wantField: "metadata.email"},
		{name: "bad phone", body: `{"query":"hi","formData":{"phone":"call me"}}`, wantField: "metadata.phone"},
		{name: "long name", body: `{"query":"hi","metadata":{"name":"` + strings.Repeat("a", 101) + `"}}`, wantField: "metadata.name"},
		{name: "long query", body: `{"query":"` + strings.Repeat("q", 2001) + `"}`, wantField: "query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := &fakeAnswerer{}
			s := newTestServer(t, a)

			w := do(t, s, http.MethodPost, "/api/chat", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400; body: %s", w.Code, w.Body.String())
			}
			if a.calls != 0 {
				t.Error("assistant must not be called for a rejected request")
			}
			resp := decodeBody[errorResponse](t, w)
			if resp.Error == "" {
				t.Error("expected an error message")
			}
			if tt.wantField != "" {
				if _, ok := resp.Fields[tt.wantField]; !ok {
					t.Errorf("fields %v missing %q", resp.Fields, tt.wantField)
				}
			}
		})
	}
}

func Test_Chat_AcceptsPhoneFormats(t *testing.T) {
	t.Parallel()
	for _, phone := range []string{"03-1234-5678", "+81 (3) 1234.5678", "0312345678"} {
		a := &fakeAnswerer{resp: chat.Response{Text: "ok", Succeeded: true, Source: chat.SourceModel}}
		s := newTestServer(t, a)
		w := do(t, s, http.MethodPost, "/api/chat", `{"query":"hi","metadata":{"phone":"`+phone+`"}}`)
		if w.Code != http.StatusOK {
			t.Errorf("phone %q: status %d; body: %s", phone, w.Code, w.Body.String())
		}
	}
}

func Test_Chat_BodyTooLarge(t *testing.T) {
	t.Parallel()
	a := &fakeAnswerer{}
	s := newTestServer(t, a)
	s.cfg.MaxBodyBytes = 32

	w := do(t, s, http.MethodPost, "/api/chat", `{"query":"`+strings.Repeat("x", 100)+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
	if a.calls != 0 {
		t.Error("assistant called for an oversized body")
	}
}

func Test_Chat_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAnswerer{})
	if w := do(t, s, http.MethodGet, "/api/chat", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/chat: got %d, want 405", w.Code)
	}
}

// Test_Chat_OfflineAssistant runs the real pipeline with no completion model
// configured: the reply always comes from the fallback and still succeeds.
func Test_Chat_OfflineAssistant(t *testing.T) {
	t.Parallel()
	a, err := chat.New(t.Context(), &chat.Config{})
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}
	s := newTestServer(t, a)

	w := do(t, s, http.MethodPost, "/api/chat", `{"query":"How much does it cost?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[chatResponse](t, w)
	if resp.SourceTag != "fallback" {
		t.Errorf("sourceTag: got %q, want fallback", resp.SourceTag)
	}
	if !resp.Succeeded || resp.Text == "" {
		t.Errorf("offline reply must carry text: %+v", resp)
	}
}

func Test_Draft(t *testing.T) {
	t.Parallel()
	a := &fakeAnswerer{}
	s := newTestServer(t, a)

	w := do(t, s, http.MethodPost, "/api/draft", `{"formData":{"name":"Ken","service":"ec"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", w.Code, w.Body.String())
	}
	if got := decodeBody[draftResponse](t, w).Draft; got != "draft for Ken" {
		t.Errorf("draft: got %q", got)
	}
	if a.lastMeta.Service != "ec" {
		t.Errorf("service: got %q", a.lastMeta.Service)
	}

	w = do(t, s, http.MethodPost, "/api/draft", `{"metadata":{"email":"nope"}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid draft metadata: got %d, want 400", w.Code)
	}
}

func Test_Search(t *testing.T) {
	t.Parallel()
	a := &fakeAnswerer{results: []rag.RankedEntry{
		{KnowledgeEntry: rag.KnowledgeEntry{ID: "service-ai", Category: rag.CategoryService, Content: "AI Consulting"}, Similarity: 0.42},
	}}
	s := newTestServer(t, a)

	w := do(t, s, http.MethodPost, "/api/search", `{"query":"ai consulting","topK":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[searchResponse](t, w)
	if len(resp.Results) != 1 {
		t.Fatalf("results: got %d, want 1", len(resp.Results))
	}
	got := resp.Results[0]
	if got.ID != "service-ai" || got.Category != "service" || got.Similarity != 0.42 {
		t.Errorf("unexpected result: %+v", got)
	}
	if a.lastTopK != 5 {
		t.Errorf("topK: got %d, want 5", a.lastTopK)
	}
}

func Test_Search_Rejections(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAnswerer{})

	for _, body := range []string{`{"query":""}`, `{"query":"x","topK":0.5}`, `{"query":"x","topK":51}`, `{"query":"x","topK":-1}`} {
		if w := do(t, s, http.MethodPost, "/api/search", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", body, w.Code)
		}
	}
}

func Test_Search_Error(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAnswerer{searchErr: errors.New("boom")})
	if w := do(t, s, http.MethodPost, "/api/search", `{"query":"x"}`); w.Code != http.StatusInternalServerError {
		t.Errorf("got %d, want 500", w.Code)
	}
}

func Test_Middleware_RequestID(t *testing.T) {
	t.Parallel()
	a := &fakeAnswerer{resp: chat.Response{Text: "ok", Succeeded: true, Source: chat.SourceModel}}
	s := newTestServer(t, a)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"hi"}`))
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("echoed id: got %q", got)
	}
	if a.lastReq.RequestID != "abc-123" {
		t.Errorf("assistant saw id %q", a.lastReq.RequestID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("z", 65))
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("oversized id should be replaced by a uuid, got %q", got)
	}
}

func Test_Middleware_CORS(t *testing.T) {
	t.Parallel()

	t.Run("allow all by default", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, &fakeAnswerer{})
		req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
		req.Header.Set("Origin", "https://shop.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin: got %q, want *", got)
		}
	})

	t.Run("configured origins", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, &fakeAnswerer{})
		s.httpServer.Handler = func() http.Handler {
			s.cfg.CORSOrigins = []string{"https://allowed.example"}
			return s.routes()
		}()

		for origin, want := range map[string]string{
			"https://allowed.example": "https://allowed.example",
			"https://evil.example":    "",
		} {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set("Origin", origin)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != want {
				t.Errorf("origin %s: Allow-Origin got %q, want %q", origin, got, want)
			}
		}
	})
}

func Test_ValidPhone(t *testing.T) {
	t.Parallel()
	tests := []struct {
		phone string
		want  bool
	}{
		{"090-1234-5678", true},
		{"+1 (555) 010.9999", true},
		{"---", false},
		{"12a4", false},
	}
	for _, tt := range tests {
		err := validate.Var(tt.phone, "phone")
		if got := err == nil; got != tt.want {
			t.Errorf("phone %q: valid=%v, want %v", tt.phone, got, tt.want)
		}
	}
}

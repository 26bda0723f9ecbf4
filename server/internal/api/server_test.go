package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"saphira/server/internal/config"
	"saphira/server/internal/domain"
	"saphira/server/internal/engine"
	"saphira/server/internal/generator"
	"saphira/server/internal/model"
	"saphira/server/internal/orchestrator"
	"saphira/server/internal/realtime"
	"saphira/server/internal/session"
	"saphira/server/internal/timeline"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Engine.ReactionDelayMin, cfg.Engine.ReactionDelayMax = 0, 0
	cfg.Engine.ThinkingDelayMin, cfg.Engine.ThinkingDelayMax = 0, 0

	quiet := log.New(io.Discard, "", 0)
	cat := domain.Default()
	gen := generator.New(nil, cat, generator.Options{Logger: quiet})
	eng := engine.New(cfg.Engine, cat, gen, time.Now)
	orch := orchestrator.New(eng, session.NewInMemoryStore(), nil, timeline.NewInMemoryStore(), time.Now, quiet)
	t.Cleanup(orch.Close)

	srv := httptest.NewServer(NewServer(cfg, orch).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, url, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

type sessionResult struct {
	Session  model.Session   `json:"session"`
	Messages []model.Message `json:"messages"`
}

func createAndStart(t *testing.T, base string, body map[string]any) string {
	t.Helper()
	var created sessionResult
	if code := doJSON(t, http.MethodPost, base+"/api/sessions", body, &created); code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}
	var started sessionResult
	if code := doJSON(t, http.MethodPost, base+"/api/sessions/"+created.Session.ID+"/start", nil, &started); code != http.StatusOK {
		t.Fatalf("start: status %d", code)
	}
	if len(started.Messages) == 0 || started.Session.Status != model.StatusInProgress {
		t.Fatalf("unexpected start result: %+v", started.Session)
	}
	return created.Session.ID
}

func TestHealthzAndUseCases(t *testing.T) {
	srv := newTestServer(t)
	var health map[string]string
	if code := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, &health); code != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("healthz: %d %v", code, health)
	}
	var cases []model.UseCaseConfig
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/use-cases", nil, &cases); code != http.StatusOK {
		t.Fatalf("use-cases: %d", code)
	}
	if len(cases) != 9 {
		t.Fatalf("expected 9 use cases, got %d", len(cases))
	}
}

func TestListCompanies(t *testing.T) {
	srv := newTestServer(t)
	var all, kenya []domain.Company
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/companies", nil, &all); code != http.StatusOK || len(all) != 11 {
		t.Fatalf("companies: %d, %d entries", code, len(all))
	}
	doJSON(t, http.MethodGet, srv.URL+"/api/companies?country=kenya", nil, &kenya)
	if len(kenya) != 3 || kenya[0].Country != model.CountryKenya {
		t.Fatalf("unexpected kenyan companies: %+v", kenya)
	}
}

func TestStats(t *testing.T) {
	srv := newTestServer(t)
	createAndStart(t, srv.URL, map[string]any{"use_case": "job_interview", "max_questions": 3})
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]any{"use_case": "business_pitch"}, nil)

	var st orchestrator.Stats
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/stats", nil, &st); code != http.StatusOK {
		t.Fatalf("stats: status %d", code)
	}
	if st.Sessions != 2 || st.ByStatus[model.StatusInProgress] != 1 || st.ByStatus[model.StatusConfiguring] != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if len(st.Queues) != 1 || st.Queues[0].Processed != 1 {
		t.Fatalf("expected one active queue with the start job: %+v", st.Queues)
	}
}

func TestCreateSessionDetectsFromDescription(t *testing.T) {
	srv := newTestServer(t)
	var created sessionResult
	code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]any{
		"description": "I have a visa interview at the embassy in Nairobi, Kenya",
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}
	if created.Session.UseCase != model.UseCaseEmbassyInterview || created.Session.Country != model.CountryKenya {
		t.Fatalf("unexpected detection: %s / %s", created.Session.UseCase, created.Session.Country)
	}
}

func TestCreateSessionErrors(t *testing.T) {
	srv := newTestServer(t)
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]any{}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 without use case, got %d", code)
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]any{"use_case": "speed_dating"}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown use case, got %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/sessions/missing", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestRespondUntilComplete(t *testing.T) {
	srv := newTestServer(t)
	id := createAndStart(t, srv.URL, map[string]any{"use_case": "job_interview", "max_questions": 2, "seed": 3})

	var first struct {
		Feedback   *model.QuestionFeedback `json:"feedback"`
		IsComplete bool                    `json:"is_complete"`
		Source     string                  `json:"question_source"`
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/responses", map[string]any{"text": "I led a team of 5 engineers."}, &first); code != http.StatusOK {
		t.Fatalf("respond: status %d", code)
	}
	if first.Feedback == nil || first.IsComplete || first.Source != "fallback" {
		t.Fatalf("unexpected first turn: %+v", first)
	}

	var second struct {
		IsComplete bool                  `json:"is_complete"`
		Summary    *model.SessionSummary `json:"summary"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/responses", map[string]any{"text": "Thank you."}, &second)
	if !second.IsComplete || second.Summary == nil {
		t.Fatalf("expected completion with summary: %+v", second)
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/responses", map[string]any{"text": "one more"}, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 after completion, got %d", code)
	}

	var events []model.Event
	doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+id+"/timeline?after=1", nil, &events)
	if len(events) == 0 || events[0].Seq != 2 {
		t.Fatalf("unexpected timeline: %+v", events)
	}
}

func TestRespondRequiresText(t *testing.T) {
	srv := newTestServer(t)
	id := createAndStart(t, srv.URL, map[string]any{"use_case": "business_pitch"})
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/responses", map[string]any{"text": ""}, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestEndSummaryExportImport(t *testing.T) {
	srv := newTestServer(t)
	id := createAndStart(t, srv.URL, map[string]any{"use_case": "scholarship_interview"})
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/responses", map[string]any{"text": "I built a library for my village."}, nil)

	var ended struct {
		Session model.Session        `json:"session"`
		Summary model.SessionSummary `json:"summary"`
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/end", nil, &ended); code != http.StatusOK {
		t.Fatalf("end: status %d", code)
	}
	if ended.Session.Status != model.StatusCompleted || ended.Summary.QuestionsAnswered != 1 {
		t.Fatalf("unexpected end result: %+v", ended.Summary)
	}

	var summary model.SessionSummary
	doJSON(t, http.MethodGet, srv.URL+"/api/sessions/"+id+"/summary", nil, &summary)
	if summary.OverallScore != ended.Summary.OverallScore {
		t.Fatalf("summary must be stable: %d vs %d", summary.OverallScore, ended.Summary.OverallScore)
	}

	resp, err := http.Get(srv.URL + "/api/sessions/" + id + "/export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	exported, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	importResp, err := http.Post(srv.URL+"/api/sessions/import", "application/json", bytes.NewReader(exported))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	importResp.Body.Close()
	if importResp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 importing an existing session, got %d", importResp.StatusCode)
	}

	other := newTestServer(t)
	importResp, _ = http.Post(other.URL+"/api/sessions/import", "application/json", bytes.NewReader(exported))
	importResp.Body.Close()
	if importResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", importResp.StatusCode)
	}

	bad, _ := http.Post(other.URL+"/api/sessions/import", "application/json", strings.NewReader(`{"id":""}`))
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid import, got %d", bad.StatusCode)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) []serverMessage {
	t.Helper()
	var seen []serverMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read %s: %v (seen %d messages)", typ, err, len(seen))
		}
		seen = append(seen, msg)
		if msg.Type == typ {
			return seen
		}
	}
}

func TestStreamSession(t *testing.T) {
	srv := newTestServer(t)
	var created sessionResult
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]any{"use_case": "job_interview", "max_questions": 3}, &created)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + created.Session.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if first := readUntil(t, conn, serverSession); first[0].Session.ID != created.Session.ID {
		t.Fatalf("expected session snapshot first")
	}

	_ = conn.WriteJSON(clientMessage{Type: clientStart})
	opening := readUntil(t, conn, serverTurnDone)
	panel := 0
	for _, m := range opening {
		if m.Type == serverPanel {
			panel++
		}
	}
	if panel < 3 {
		t.Fatalf("expected opening panel messages, got %d", panel)
	}

	_ = conn.WriteJSON(clientMessage{Type: clientResponse, Text: "I increased sales by 30 percent."})
	turn := readUntil(t, conn, serverTurnDone)
	if turn[0].Type != serverFeedback || turn[0].Feedback == nil {
		t.Fatalf("expected feedback before panel messages, got %s", turn[0].Type)
	}

	_ = conn.WriteJSON(clientMessage{Type: clientEnd})
	done := readUntil(t, conn, serverCompleted)
	last := done[len(done)-1]
	if last.Summary == nil || last.Session.Status != model.StatusCompleted {
		t.Fatalf("expected completed session with summary: %+v", last)
	}
}

func TestStreamUnknownSession(t *testing.T) {
	srv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/nope/stream"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response")
	}
}

func TestTranscriptionTokenNotConfigured(t *testing.T) {
	srv := newTestServer(t)
	var created sessionResult
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]any{"use_case": "embassy_interview", "country": "kenya"}, &created)

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+created.Session.ID+"/transcription/token", nil, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without api key, got %d", code)
	}
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/missing/transcription/token", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", code)
	}
}

func TestTranscriptionTokenIssued(t *testing.T) {
	var gotPrompt, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req realtime.TranscriptionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.InputAudioTranscription.Prompt
		_, _ = w.Write([]byte(`{"client_secret":{"value":"ek_test","expires_at":1790000000}}`))
	}))
	defer upstream.Close()

	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.LLM.OpenAI.APIKey = "sk-test"
	quiet := log.New(io.Discard, "", 0)
	cat := domain.Default()
	eng := engine.New(cfg.Engine, cat, generator.New(nil, cat, generator.Options{Logger: quiet}), time.Now)
	orch := orchestrator.New(eng, session.NewInMemoryStore(), nil, timeline.NewInMemoryStore(), time.Now, quiet)
	defer orch.Close()

	s := NewServer(cfg, orch)
	s.realtimeClient.BaseURL = upstream.URL
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	var created sessionResult
	doJSON(t, http.MethodPost, srv.URL+"/api/sessions", map[string]any{"use_case": "job_interview", "country": "nigeria"}, &created)

	var tok transcriptionTokenResponse
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/sessions/"+created.Session.ID+"/transcription/token", nil, &tok); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if tok.EphemeralKey != "ek_test" || tok.Model != "gpt-4o-transcribe" {
		t.Fatalf("unexpected token response: %+v", tok)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if !strings.Contains(gotPrompt, "Nigeria") || !strings.Contains(gotPrompt, "job interview") {
		t.Fatalf("prompt should mention country and use case: %q", gotPrompt)
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"

	"aarogya/internal/ai"
	"aarogya/internal/audio"
	"aarogya/internal/stt"
	"aarogya/internal/triage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTranscriber struct {
	mu      sync.Mutex
	calls   int
	result  stt.Result
	sawFile bool
	path    string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path, ext, language string) stt.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.path = path
	_, err := os.Stat(path)
	f.sawFile = err == nil
	res := f.result
	if res.Language == "" {
		res.Language = language
	}
	return res
}

func (f *fakeTranscriber) PrimaryName() string  { return "google" }
func (f *fakeTranscriber) FallbackName() string { return "command" }

type fakeAnalyzer struct {
	calls  int
	result ai.AnalysisResult
	info   ai.HealthInfoResult
	err    error
	panics bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, symptoms, language string) (ai.AnalysisResult, error) {
	f.calls++
	if f.panics {
		panic("classifier exploded")
	}
	return f.result, f.err
}

func (f *fakeAnalyzer) HealthInfo(_ context.Context, topic, language string) (ai.HealthInfoResult, error) {
	f.calls++
	return f.info, f.err
}

type countingChat struct{ calls int }

func (c *countingChat) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	return openai.ChatCompletionResponse{}, nil
}

type envelope struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data"`
	Error     string         `json:"error"`
	Details   string         `json:"details"`
	Kind      string         `json:"kind"`
	RequestID string         `json:"request_id"`
	Timestamp string         `json:"timestamp"`
}

func newTestRouter(t *testing.T, d Deps, opts RouterOptions) *gin.Engine {
	t.Helper()
	if d.UploadDir == "" {
		d.UploadDir = t.TempDir()
	}
	r, err := NewRouter(NewHandler(d), opts)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return w, env
}

func uploadRequest(t *testing.T, field, filename string, data []byte, language string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if language != "" {
		mw.WriteField("language", language)
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/speech-to-text", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func wavBytes(t *testing.T, n int) []byte {
	t.Helper()
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((i % 200) * 50)
	}
	data, err := audio.EncodeWAV(samples, audio.CanonicalSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}

func TestHealthAndLanguages(t *testing.T) {
	r := newTestRouter(t, Deps{}, RouterOptions{})

	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || env.Data["status"] != "ok" {
		t.Errorf("unexpected health response %d %+v", w.Code, env)
	}

	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	langs, _ := env.Data["languages"].([]any)
	if len(langs) != 8 {
		t.Errorf("expected 8 languages, got %d", len(langs))
	}
	first, _ := langs[0].(map[string]any)
	if first["code"] != "en" || first["recognition_code"] != "en-US" {
		t.Errorf("unexpected first language %v", first)
	}
}

func TestSupportedFormats(t *testing.T) {
	r := newTestRouter(t, Deps{}, RouterOptions{})
	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/speech/supported-formats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	formats, _ := env.Data["formats"].([]any)
	if len(formats) != len(audio.SupportedFormats) {
		t.Errorf("unexpected formats %v", formats)
	}
	if env.Data["max_file_size_mb"] != float64(10) {
		t.Errorf("unexpected max size %v", env.Data["max_file_size_mb"])
	}
}

func TestSpeechTest(t *testing.T) {
	r := newTestRouter(t, Deps{Transcriber: &fakeTranscriber{}}, RouterOptions{})
	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/speech/test", nil))
	if w.Code != http.StatusOK || env.Data["status"] != "operational" {
		t.Fatalf("unexpected response %d %+v", w.Code, env)
	}
	if env.Data["primary_backend"] != "google" || env.Data["fallback_enabled"] != true {
		t.Errorf("unexpected backends %v", env.Data)
	}

	r = newTestRouter(t, Deps{}, RouterOptions{})
	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/speech/test", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a transcriber, got %d", w.Code)
	}
}

func TestSpeechToTextSuccess(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTranscriber{result: stt.Result{
		Success:    true,
		Text:       "मुझे बुखार है",
		Confidence: 0.9,
		Method:     stt.MethodPrimary,
		Backend:    "google",
	}}
	r := newTestRouter(t, Deps{Transcriber: tr, UploadDir: dir}, RouterOptions{})

	data := wavBytes(t, 8000)
	w, env := do(t, r, uploadRequest(t, "audio", "note.WAV", data, "hi"))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if env.Data["text"] != "मुझे बुखार है" || env.Data["confidence"] != 0.9 || env.Data["method"] != "primary" {
		t.Errorf("unexpected data %v", env.Data)
	}
	if env.Data["language"] != "hi" {
		t.Errorf("expected language hi, got %v", env.Data["language"])
	}
	info, _ := env.Data["file_info"].(map[string]any)
	if info["filename"] != "note.WAV" || info["format"] != ".wav" || info["size"] != float64(len(data)) {
		t.Errorf("unexpected file_info %v", info)
	}
	if env.RequestID == "" || env.Timestamp == "" {
		t.Error("expected request_id and timestamp")
	}
	if !tr.sawFile {
		t.Error("transcriber should see the saved upload")
	}
	assertEmptyDir(t, dir)
}

func TestSpeechToTextClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		contains string
	}{
		{
			name:     "missing file",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "", "", nil, "en") },
			contains: "no audio file provided",
		},
		{
			name:     "wrong field",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "file", "a.wav", wavBytes(t, 100), "en") },
			contains: "no audio file provided",
		},
		{
			name:     "unsupported extension",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "audio", "notes.txt", []byte("hello"), "en") },
			contains: "unsupported format",
		},
		{
			name:     "undecodable content",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "audio", "a.wav", []byte("not really audio"), "en") },
			contains: "invalid audio file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tr := &fakeTranscriber{}
			r := newTestRouter(t, Deps{Transcriber: tr, UploadDir: dir}, RouterOptions{})

			w, env := do(t, r, tt.req(t))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if env.Success || !strings.Contains(env.Error, tt.contains) {
				t.Errorf("unexpected error %q", env.Error)
			}
			if tr.calls != 0 {
				t.Errorf("recognizer must not be called, got %d calls", tr.calls)
			}
			assertEmptyDir(t, dir)
		})
	}
}

func TestSpeechToTextOversized(t *testing.T) {
	tests := []struct {
		name    string
		samples int
	}{
		// Fits in the body allowance, rejected on the declared part size.
		{"part over limit", 4000},
		// Exceeds limit plus form overhead, cut off while parsing.
		{"body over limit", 100000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tr := &fakeTranscriber{}
			v := audio.NewValidator(nil)
			v.MaxFileSize = 1024
			r := newTestRouter(t, Deps{Transcriber: tr, Validator: v, UploadDir: dir}, RouterOptions{})

			w, env := do(t, r, uploadRequest(t, "audio", "long.wav", wavBytes(t, tt.samples), "en"))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(env.Error, "file size too large") {
				t.Errorf("unexpected error %q", env.Error)
			}
			if tr.calls != 0 {
				t.Errorf("recognizer must not be called, got %d calls", tr.calls)
			}
			assertEmptyDir(t, dir)
		})
	}
}

func TestSpeechToTextFailure(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTranscriber{result: stt.Result{Error: "could not understand audio"}}
	r := newTestRouter(t, Deps{Transcriber: tr, UploadDir: dir}, RouterOptions{})

	w, env := do(t, r, uploadRequest(t, "audio", "a.wav", wavBytes(t, 8000), "en"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if env.Error != "could not understand audio" {
		t.Errorf("unexpected error %q", env.Error)
	}
	assertEmptyDir(t, dir)
}

func TestSpeechToTextRejectedAudio(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTranscriber{result: stt.Result{Error: "audio too long (max 5m0s)", Rejected: true}}
	r := newTestRouter(t, Deps{Transcriber: tr, UploadDir: dir}, RouterOptions{})

	w, env := do(t, r, uploadRequest(t, "audio", "a.wav", wavBytes(t, 8000), "en"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if env.Error != "audio too long (max 5m0s)" {
		t.Errorf("unexpected error %q", env.Error)
	}
	assertEmptyDir(t, dir)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAnalyzeSymptomsSuccess(t *testing.T) {
	an := &fakeAnalyzer{result: ai.AnalysisResult{
		Success:      true,
		AnalysisText: "Rest and drink fluids.",
		Category:     triage.CategoryFever,
		Severity:     triage.SeverityMedium,
		Language:     "hi",
	}}
	r := newTestRouter(t, Deps{Analyzer: an}, RouterOptions{})

	w, env := do(t, r, jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"बुखार","language":"hi","user_id":"u1"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if env.Data["analysis"] != "Rest and drink fluids." || env.Data["condition_category"] != "fever" || env.Data["severity"] != "medium" {
		t.Errorf("unexpected data %v", env.Data)
	}
	recs, _ := env.Data["recommendations"].([]any)
	if len(recs) == 0 {
		t.Error("expected recommendations")
	}
	if env.Data["disclaimer"] != triage.DefaultTables().Disclaimer("hi") {
		t.Errorf("unexpected disclaimer %v", env.Data["disclaimer"])
	}
	if env.RequestID == "" {
		t.Error("expected request_id")
	}
}

func TestAnalyzeSymptomsEmptyMakesNoGatewayCall(t *testing.T) {
	chat := &countingChat{}
	tables := triage.DefaultTables()
	analyzer := ai.NewAnalyzer(chat, triage.NewClassifier(tables), ai.NewAssembler(tables, ai.DefaultModelParams()), 0, nil)
	r := newTestRouter(t, Deps{Analyzer: analyzer}, RouterOptions{})

	for _, body := range []string{`{"symptoms":"   ","language":"en"}`, `{"language":"en"}`, `not json`} {
		w, env := do(t, r, jsonRequest(http.MethodPost, "/api/analyze-symptoms", body))
		if w.Code != http.StatusBadRequest || env.Success {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}
	if chat.calls != 0 {
		t.Errorf("expected no gateway calls, got %d", chat.calls)
	}
}

func TestAnalyzeSymptomsUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"timeout", &ai.Error{Kind: ai.KindTimeout, Msg: "request timeout"}, http.StatusGatewayTimeout, ""},
		{"network", &ai.Error{Kind: ai.KindNetwork, Msg: "connection refused"}, http.StatusBadGateway, "network"},
		{"upstream", &ai.Error{Kind: ai.KindUpstream, Status: 503, Body: "overloaded"}, http.StatusBadGateway, "upstream"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			an := &fakeAnalyzer{err: tt.err}
			r := newTestRouter(t, Deps{Analyzer: an}, RouterOptions{})

			w, env := do(t, r, jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"headache"}`))
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if env.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, env.Kind)
			}
			if env.Details != "" {
				t.Errorf("details must only appear in debug mode, got %q", env.Details)
			}
		})
	}
}

func TestAnalyzeSymptomsDebugDetails(t *testing.T) {
	an := &fakeAnalyzer{err: &ai.Error{Kind: ai.KindUpstream, Status: 500, Body: "oops", Err: errors.New("status 500")}}
	r := newTestRouter(t, Deps{Analyzer: an}, RouterOptions{})

	w, env := do(t, r, jsonRequest(http.MethodPost, "/api/analyze-symptoms?debug=1", `{"symptoms":"headache"}`))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if env.Details != "status 500" {
		t.Errorf("unexpected details %q", env.Details)
	}
}

func TestRecovery(t *testing.T) {
	an := &fakeAnalyzer{panics: true}
	r := newTestRouter(t, Deps{Analyzer: an}, RouterOptions{})

	w, env := do(t, r, jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"headache"}`))
	if w.Code != http.StatusInternalServerError || env.Error != "internal server error" {
		t.Errorf("unexpected response %d %+v", w.Code, env)
	}
	if env.Details != "" {
		t.Errorf("unexpected details %q", env.Details)
	}

	_, env = do(t, r, jsonRequest(http.MethodPost, "/api/analyze-symptoms?debug=true", `{"symptoms":"headache"}`))
	if env.Details != "classifier exploded" {
		t.Errorf("expected panic details, got %q", env.Details)
	}
}

func TestHealthInfo(t *testing.T) {
	an := &fakeAnalyzer{info: ai.HealthInfoResult{Topic: "fever", Title: "Understanding Fever", Content: "...", Language: "en"}}
	r := newTestRouter(t, Deps{Analyzer: an}, RouterOptions{})

	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/health-info/fever?lang=en", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if env.Data["title"] != "Understanding Fever" || env.Data["topic"] != "fever" {
		t.Errorf("unexpected data %v", env.Data)
	}
}

func TestRateLimit(t *testing.T) {
	an := &fakeAnalyzer{result: ai.AnalysisResult{Success: true, Language: "en"}}
	r := newTestRouter(t, Deps{Analyzer: an}, RouterOptions{RateLimitRPS: 0.001, RateLimitBurst: 1})

	w, _ := do(t, r, jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"cough"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", w.Code)
	}
	w, env := do(t, r, jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"cough"}`))
	if w.Code != http.StatusTooManyRequests || env.Success {
		t.Errorf("expected 429, got %d", w.Code)
	}
	if an.calls != 1 {
		t.Errorf("limited request must not reach the analyzer, got %d calls", an.calls)
	}

	// Other clients and GET routes are unaffected.
	req := jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"cough"}`)
	req.RemoteAddr = "198.51.100.20:4000"
	if w, _ := do(t, r, req); w.Code != http.StatusOK {
		t.Errorf("different client should pass, got %d", w.Code)
	}
	if w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/api/languages", nil)); w.Code != http.StatusOK {
		t.Errorf("GET routes are not limited, got %d", w.Code)
	}
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	an := &fakeAnalyzer{result: ai.AnalysisResult{Success: true, Language: "en"}}
	r := newTestRouter(t, Deps{Analyzer: an}, RouterOptions{RateLimitRPS: 0.001, RateLimitBurst: 1})

	limited := 0
	for i := 0; i < 20; i++ {
		req := jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"cough"}`)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		if w, _ := do(t, r, req); w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 19 {
		t.Errorf("expected 19 of 20 requests limited, got %d", limited)
	}
	if an.calls != 1 {
		t.Errorf("expected one analyzer call, got %d", an.calls)
	}
}

func TestRateLimitTrustedProxy(t *testing.T) {
	an := &fakeAnalyzer{result: ai.AnalysisResult{Success: true, Language: "en"}}
	// httptest requests come from 192.0.2.1.
	r := newTestRouter(t, Deps{Analyzer: an}, RouterOptions{
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
		TrustedProxies: []string{"192.0.2.0/24"},
	})

	for _, client := range []string{"203.0.113.1", "203.0.113.2"} {
		req := jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"cough"}`)
		req.Header.Set("X-Forwarded-For", client)
		if w, _ := do(t, r, req); w.Code != http.StatusOK {
			t.Errorf("client %s behind a trusted proxy should pass, got %d", client, w.Code)
		}
	}

	req := jsonRequest(http.MethodPost, "/api/analyze-symptoms", `{"symptoms":"cough"}`)
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	if w, _ := do(t, r, req); w.Code != http.StatusTooManyRequests {
		t.Errorf("repeat client should be limited, got %d", w.Code)
	}
}

func TestNewRouterRejectsBadProxy(t *testing.T) {
	if _, err := NewRouter(NewHandler(Deps{}), RouterOptions{TrustedProxies: []string{"not-an-ip"}}); err == nil {
		t.Error("expected error for invalid trusted proxy")
	}
}

func TestIPRateLimiterEvictsIdle(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		l.GetLimiter(fmt.Sprintf("203.0.113.%d", i))
	}
	if len(l.limiters) != 50 {
		t.Fatalf("expected 50 limiters, got %d", len(l.limiters))
	}

	now = now.Add(limiterIdleTTL + sweepInterval)
	l.GetLimiter("198.51.100.1")
	if len(l.limiters) != 1 {
		t.Errorf("idle limiters should be evicted, %d left", len(l.limiters))
	}
}

func TestIPRateLimiterKeepsBucketUntilRefilled(t *testing.T) {
	// At 0.001 rps a bucket takes 1000s to refill, longer than the idle TTL.
	l := NewIPRateLimiter(0.001, 1)
	if l.idleTTL < 1000*time.Second {
		t.Errorf("idle TTL %v shorter than refill time", l.idleTTL)
	}
}

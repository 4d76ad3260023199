package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"finance-brief/internal/alerts"
	"finance-brief/internal/report"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEngine struct {
	triggered []alerts.Alert
	err       error
}

func (e stubEngine) EvaluateAll(context.Context) ([]alerts.Alert, error) {
	return e.triggered, e.err
}

type stubBrief struct{}

func (stubBrief) Build(context.Context) (string, []report.SectionResult) {
	return "Morning Finance Brief\n", []report.SectionResult{
		{Name: "News", Status: report.StatusTimedOut, Err: errors.New("timed out after 20s")},
	}
}

func newTestServer(t *testing.T, engine AlertEvaluator) (*Server, *alerts.Store) {
	t.Helper()
	store := alerts.NewStore(alerts.StoreOptions{
		Path:     filepath.Join(t.TempDir(), "alerts.json"),
		Location: time.UTC,
	}, zerolog.Nop())
	return New(store, engine, stubBrief{}, zerolog.Nop()), store
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, stubEngine{})
	rec := do(s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAddListRemoveAlert(t *testing.T) {
	s, store := newTestServer(t, stubEngine{})

	rec := do(s, http.MethodPost, "/alerts", `{"type":"price","symbol":"bhp.ax","condition":"above","target":"50"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	var created alerts.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 1 || created.Symbol != "BHP.AX" {
		t.Fatalf("unexpected alert %+v", created)
	}

	rec = do(s, http.MethodGet, "/alerts", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(s, http.MethodDelete, "/alerts/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: %d %s", rec.Code, rec.Body.String())
	}
	if len(store.List()) != 0 {
		t.Fatal("alert should be gone")
	}
}

func TestAddAlertValidation(t *testing.T) {
	s, store := newTestServer(t, stubEngine{})

	cases := []string{
		`{"type":"price","symbol":"BHP.AX","condition":"sideways","target":"50"}`,
		`{"type":"news","keywords":["  "]}`,
		`{"type":"volatility","symbol":"BHP.AX","threshold_pct":"-1"}`,
		`{"type":"unknown"}`,
		`{not json`,
	}
	for _, body := range cases {
		rec := do(s, http.MethodPost, "/alerts", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d %s", body, rec.Code, rec.Body.String())
		}
	}
	if len(store.List()) != 0 {
		t.Fatal("rejected adds must not be stored")
	}
}

func TestRemoveAlertErrors(t *testing.T) {
	s, _ := newTestServer(t, stubEngine{})

	if rec := do(s, http.MethodDelete, "/alerts/99", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: %d", rec.Code)
	}
	if rec := do(s, http.MethodDelete, "/alerts/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestCheckAlertsReportsSaveWarning(t *testing.T) {
	s, _ := newTestServer(t, stubEngine{
		triggered: []alerts.Alert{{ID: 4, Kind: alerts.KindNews, Keywords: []string{"RBA"}, Triggered: true}},
		err:       errors.New("disk full"),
	})

	rec := do(s, http.MethodPost, "/alerts/check", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("check: %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"count":1`) || !strings.Contains(body, "disk full") {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestBrief(t *testing.T) {
	s, _ := newTestServer(t, stubEngine{})

	rec := do(s, http.MethodGet, "/brief", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"timed_out"`) {
		t.Fatalf("json brief: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(s, http.MethodGet, "/brief?format=text", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "Morning Finance Brief\n" {
		t.Fatalf("text brief: %d %q", rec.Code, rec.Body.String())
	}
}

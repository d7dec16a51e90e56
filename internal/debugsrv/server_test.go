package debugsrv

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/me/mgfw/pkg/clock"
	"github.com/me/mgfw/pkg/injector"
	"github.com/me/mgfw/pkg/logging"
	"github.com/me/mgfw/pkg/queue"
	"github.com/me/mgfw/pkg/scheduler"
)

func testSink() (*logging.SlogSink, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewSlogSinkWithWriter(logging.Warn, "text", &buf), &buf
}

func TestHandleHealth(t *testing.T) {
	sink, _ := testSink()
	s := New(nil, nil, nil, sink)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("expected ok status, got %q", body.Status)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestHandleJobsAndCancel(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	sched := scheduler.New(mc, sink)
	id := sched.SetTimeout(func() {}, time.Hour)

	s := New(nil, sched, nil, sink)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	if !strings.Contains(rec.Body.String(), "pending_job_ids") {
		t.Fatalf("expected pending_job_ids in response, got %s", rec.Body.String())
	}

	cancelRec := httptest.NewRecorder()
	path := "/jobs/" + strconv.FormatUint(uint64(id), 10) + "/cancel"
	s.Handler().ServeHTTP(cancelRec, httptest.NewRequest(http.MethodPost, path, nil))
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("expected 200 on cancel, got %d: %s", cancelRec.Code, cancelRec.Body.String())
	}

	again := httptest.NewRecorder()
	s.Handler().ServeHTTP(again, httptest.NewRequest(http.MethodPost, path, nil))
	if again.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on re-cancel, got %d", again.Code)
	}
}

func TestHandleChannelsReportsBoundTypes(t *testing.T) {
	sink, _ := testSink()
	hive := queue.NewHive(sink)
	if _, err := queue.GetWriter[string](hive, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer hive.Close()

	s := New(nil, nil, hive, sink)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels", nil))

	if !strings.Contains(rec.Body.String(), "string") {
		t.Fatalf("expected the bound type's name in the response, got %s", rec.Body.String())
	}
}

func TestHandleTypesReportsInstantiationOrder(t *testing.T) {
	sink, _ := testSink()
	inj := injector.New()

	type widget struct{}
	if _, err := injector.Get[*widget](inj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := New(inj, nil, nil, sink)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/types", nil))

	if !strings.Contains(rec.Body.String(), "widget") {
		t.Fatalf("expected the instantiated type's name in the response, got %s", rec.Body.String())
	}
}

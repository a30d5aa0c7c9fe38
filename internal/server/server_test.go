package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coachkit/knowledge-engine/internal/db"
	"github.com/coachkit/knowledge-engine/internal/knowledge"
	"github.com/coachkit/knowledge-engine/internal/search"
)

func setupTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := knowledge.NewStore(database)
	processor := knowledge.NewProcessor(store)
	searcher := search.NewSearcher(store, nil)
	assembler := search.NewAssembler(searcher, search.NewSynonymVariations(nil))

	s := New(Config{Host: "127.0.0.1", Port: 0}, database, store, processor, searcher, assembler, nil)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHealthz(t *testing.T) {
	_, ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestDocumentRoundTripOverHTTP(t *testing.T) {
	_, ts := setupTestServer(t)

	body := `{"title":"API Doc","content":"Created through the API.","namespace":"coach-a"}`
	resp, err := http.Post(ts.URL+"/api/documents", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created knowledge.Document
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created document has no id")
	}

	got, err := http.Get(ts.URL + "/api/documents/" + created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", got.StatusCode)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, ts := setupTestServer(t)

	// No corpus yet: a valid query returns an empty result list.
	body := `{"query":"goals"}`
	resp, err := http.Post(ts.URL+"/api/search", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Results []search.Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Results == nil {
		t.Error("results should decode to an empty list, not null")
	}
}

func TestSyncRoutesAbsentWithoutReconciler(t *testing.T) {
	_, ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/sync/coach-a/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected sync routes to be absent, got %d", resp.StatusCode)
	}
}

func TestEventStreamBroadcast(t *testing.T) {
	s, ts := setupTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()

	// Registration happens in the upgrade handler before it returns, but
	// give the server a moment under race conditions.
	deadline := time.Now().Add(2 * time.Second)
	for s.Events().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Events().ClientCount() != 1 {
		t.Fatal("client never registered")
	}

	s.Events().Broadcast("job.update", map[string]string{"status": "completed"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event.Type != "job.update" {
		t.Errorf("expected job.update event, got %q", event.Type)
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/service"
)

func testSnapshot(t *testing.T) *engine.Snapshot {
	t.Helper()
	e := engine.NewEngineWithDefaults(11)
	f := e.NewFrame()
	if err := e.Generate(f); err != nil {
		t.Fatalf("Failed to generate map: %v", err)
	}
	return f.Snapshot()
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected tool result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeAPI serves the subset of the REST API the client calls
func fakeAPI(t *testing.T, snapshot *engine.Snapshot) (*httptest.Server, *callLog) {
	calls := &callLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.add(r.Method + " " + r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")

		stream := service.StreamInfo{
			ID:         "abc12345",
			ParamsName: "default",
			SizeClass:  "narrow",
			Seed:       9,
			Mounts:     2,
			CreatedAt:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
			Current:    snapshot,
		}

		switch {
		case r.URL.Path == "/api/maps":
			json.NewEncoder(w).Encode(snapshot)
		case r.URL.Path == "/api/params":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"count":  1,
				"params": []service.ParamsInfo{{ParamsID: "default", Name: "Default Town", Width: 31, Height: 13}},
			})
		case r.URL.Path == "/api/streams" && r.Method == "POST":
			var req service.StreamRequest
			json.NewDecoder(r.Body).Decode(&req)
			stream.ParamsName = req.ParamsName
			json.NewEncoder(w).Encode(stream)
		case r.URL.Path == "/api/streams":
			json.NewEncoder(w).Encode(map[string]interface{}{"count": 1, "streams": []service.StreamInfo{stream}})
		case r.URL.Path == "/api/streams/missing" || r.URL.Path == "/api/streams/missing/frame":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "stream not found"})
		case r.URL.Path == "/api/streams/abc12345/frame":
			json.NewEncoder(w).Encode(snapshot)
		case r.URL.Path == "/api/streams/abc12345/viewport":
			var vp service.Viewport
			json.NewDecoder(r.Body).Decode(&vp)
			if vp.Columns >= 110 {
				stream.SizeClass = "wide"
			}
			json.NewEncoder(w).Encode(stream)
		case r.URL.Path == "/api/streams/abc12345" && r.Method == "DELETE":
			json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
		case r.URL.Path == "/api/streams/abc12345":
			json.NewEncoder(w).Encode(stream)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	return server, calls
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad seed"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.apiCall(context.Background(), "GET", "/api/maps", nil, nil)
	if err == nil || err.Error() != "bad seed" {
		t.Errorf("Expected 'bad seed' error, got %v", err)
	}
}

func TestClient_apiCall_StatusOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.apiCall(context.Background(), "GET", "/", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestClient_apiCall_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if err := client.apiCall(context.Background(), "GET", "/", nil, nil); err == nil {
		t.Error("Expected connection error")
	}
}

func TestClient_handleGenerateMap(t *testing.T) {
	snapshot := testSnapshot(t)
	server, calls := fakeAPI(t, snapshot)
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleGenerateMap(context.Background(), callTool(map[string]interface{}{
		"params":     "default",
		"seed":       float64(42),
		"size_class": "wide",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Map 31x13") {
		t.Errorf("Expected map header, got:\n%s", text)
	}
	for _, row := range snapshot.Rows {
		if !strings.Contains(text, row) {
			t.Errorf("Expected row %q in output", row)
		}
	}
	if got := calls.all()[0]; got != "GET /api/maps?params=default&seed=42&size=wide" {
		t.Errorf("Unexpected request %s", got)
	}
}

func TestClient_handleListParams(t *testing.T) {
	server, _ := fakeAPI(t, testSnapshot(t))
	defer server.Close()

	client := NewClient(server.URL)
	result, _ := client.handleListParams(context.Background(), callTool(map[string]interface{}{}))

	text := resultText(t, result)
	if !strings.Contains(text, "Parameter Sets (1)") || !strings.Contains(text, "default: Default Town (31x13)") {
		t.Errorf("Unexpected list output:\n%s", text)
	}
}

func TestClient_streamTools(t *testing.T) {
	server, calls := fakeAPI(t, testSnapshot(t))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	result, _ := client.handleCreateStream(ctx, callTool(map[string]interface{}{"params": "compact", "seed": "9"}))
	if text := resultText(t, result); !strings.Contains(text, "Stream: abc12345") || !strings.Contains(text, "Params: compact") {
		t.Errorf("Unexpected create output:\n%s", text)
	}

	result, _ = client.handleListStreams(ctx, callTool(nil))
	if text := resultText(t, result); !strings.Contains(text, "Active Streams (1)") {
		t.Errorf("Unexpected list output:\n%s", text)
	}

	result, _ = client.handleSetViewport(ctx, callTool(map[string]interface{}{"stream_id": "abc12345", "columns": 120}))
	if text := resultText(t, result); !strings.Contains(text, "wide bounds") {
		t.Errorf("Unexpected viewport output:\n%s", text)
	}

	result, _ = client.handleGetStream(ctx, callTool(map[string]interface{}{"stream_id": "missing"}))
	if !result.IsError || !strings.Contains(resultText(t, result), "stream not found") {
		t.Error("Expected error result for a missing stream")
	}

	result, _ = client.handleDeleteStream(ctx, callTool(map[string]interface{}{"stream_id": "abc12345"}))
	if text := resultText(t, result); !strings.Contains(text, "stopped") {
		t.Errorf("Unexpected delete output:\n%s", text)
	}

	want := []string{
		"POST /api/streams",
		"GET /api/streams",
		"POST /api/streams/abc12345/viewport",
		"GET /api/streams/missing",
		"DELETE /api/streams/abc12345",
	}
	if got := calls.all(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Expected calls %v, got %v", want, got)
	}
}

func TestClient_handleDescribeCell(t *testing.T) {
	snapshot := testSnapshot(t)
	server, _ := fakeAPI(t, snapshot)
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	src := snapshot.Source
	result, _ := client.handleDescribeCell(ctx, callTool(map[string]interface{}{
		"stream_id": "abc12345", "x": float64(src.X), "y": float64(src.Y),
	}))
	text := resultText(t, result)
	if !strings.Contains(text, "source") || !strings.Contains(text, "Step 0 of") {
		t.Errorf("Expected source description, got:\n%s", text)
	}

	result, _ = client.handleDescribeCell(ctx, callTool(map[string]interface{}{
		"stream_id": "abc12345", "x": 500, "y": 0,
	}))
	if !result.IsError || !strings.Contains(resultText(t, result), "outside") {
		t.Error("Expected out-of-grid error")
	}
}

func TestFormatStreamInfo_NoFrame(t *testing.T) {
	text := formatStreamInfo(&service.StreamInfo{ID: "s1", ParamsName: "default", SizeClass: "narrow"})
	if !strings.Contains(text, "No map mounted yet") {
		t.Errorf("Expected placeholder, got:\n%s", text)
	}
}

func TestFormatSnapshot_Legend(t *testing.T) {
	text := formatSnapshot(testSnapshot(t))
	for _, want := range []string{"@=source", "H=goal", "*=route", "G=green"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected legend entry %q in:\n%s", want, text)
		}
	}
}

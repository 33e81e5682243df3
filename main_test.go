package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/service"
	"github.com/wricardo/townmap/transport/websocket"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "2.0.0", Version)
	assert.Equal(t, "Town Map Server", AppName)
}

func TestFlagDefaults(t *testing.T) {
	if *port <= 0 || *port > 65535 {
		t.Errorf("Invalid default port: %d", *port)
	}
	assert.NotEmpty(t, *host)
	assert.NotEmpty(t, *configDir)
	assert.Equal(t, 24*time.Hour, *streamTTL)
}

func withConfigDir(t *testing.T, dir string) {
	t.Helper()
	original := *configDir
	*configDir = dir
	t.Cleanup(func() { *configDir = original })
}

func writeDefaultParams(t *testing.T, dir string) {
	t.Helper()
	p := engine.DefaultParams()
	p.Name = "default"
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.json"), data, 0644))
}

func TestInitializeServices(t *testing.T) {
	dir := t.TempDir()
	writeDefaultParams(t, dir)
	withConfigDir(t, dir)

	hub := websocket.NewHub()
	go hub.Run()

	mapService, streams, err := initializeServices(hub)
	require.NoError(t, err)
	require.NotNil(t, mapService)
	defer streams.StopAll()

	ctx := context.Background()
	info, err := mapService.CreateStream(ctx, service.StreamRequest{ParamsName: "default"})
	require.NoError(t, err)
	assert.Equal(t, 1, streams.Count())

	frame, err := mapService.CurrentFrame(ctx, info.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, frame.Route)
}

func TestInitializeServicesInvalidConfigDir(t *testing.T) {
	withConfigDir(t, "/non/existent/path")

	_, _, err := initializeServices(websocket.NewHub())
	assert.Error(t, err)
}

func TestInitializeServicesBundledConfigs(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}
	withConfigDir(t, "configs")

	mapService, streams, err := initializeServices(websocket.NewHub())
	require.NoError(t, err)
	defer streams.StopAll()

	params, err := mapService.ListParams(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, params)
}

func TestWaitForServer(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, waitForServer(ctx, server.Client(), server.URL))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForServerTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := waitForServer(ctx, server.Client(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("TOWNMAP_A", "")
	t.Setenv("TOWNMAP_B", "b")
	assert.Equal(t, "b", envOr("def", "TOWNMAP_A", "TOWNMAP_B"))
	assert.Equal(t, "def", envOr("def", "TOWNMAP_A"))
}

func TestTunnelSettings(t *testing.T) {
	t.Setenv("NGROK_ENABLED", "")
	_, _, ok := tunnelSettings()
	assert.False(t, ok)

	t.Setenv("NGROK_ENABLED", "1")
	t.Setenv("NGROK_AUTHTOKEN", "")
	t.Setenv("NGROK_AUTH_TOKEN", "tok")
	t.Setenv("NGROK_DOMAIN", "maps.example.com")
	token, domain, ok := tunnelSettings()
	assert.True(t, ok)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "maps.example.com", domain)
}

func TestServeTunnelRequiresToken(t *testing.T) {
	err := serveTunnel(context.Background(), http.NotFoundHandler(), "", "")
	assert.ErrorContains(t, err, "no auth token")
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	writeDefaultParams(t, dir)
	withConfigDir(t, dir)

	hub := websocket.NewHub()
	go hub.Run()
	mapService, streams, err := initializeServices(hub)
	require.NoError(t, err)
	defer streams.StopAll()

	var router http.Handler
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	defer server.Close()
	router = newRouter(mapService, hub, server.URL)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/mcp")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	resp, err = http.Post(server.URL+"/mcp", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpc struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
	var names []string
	for _, tool := range rpc.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "generate_map")
	assert.Contains(t, names, "create_stream")
}

// Command townmap serves procedurally generated town maps.
//
// Modes:
//
//	server (default)  REST API, per-stream WebSocket feed and an /mcp endpoint
//	stdio-mcp         MCP over stdio, backed by a running server or an internal one
//
// Flags cover the listen address, the parameter directory, stream retention,
// debug logging and an optional ngrok tunnel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jpillora/backoff"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/townmap/api"
	"github.com/wricardo/townmap/game/config"
	"github.com/wricardo/townmap/game/service"
	"github.com/wricardo/townmap/game/session"
	"github.com/wricardo/townmap/transport/mcp"
	"github.com/wricardo/townmap/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

const (
	Version = "2.0.0"
	AppName = "Town Map Server"

	// An already running server is reused by stdio-mcp when it answers here
	externalURL = "http://localhost:8080"
)

var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envOr("configs", "CONFIG_DIR"), "Directory containing parameter sets")
	streamTTL    = flag.Duration("stream-ttl", 24*time.Hour, "Stop streams not accessed for this long")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel (or NGROK_ENABLED=true)")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or NGROK_AUTHTOKEN)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (or NGROK_DOMAIN)")
)

// envOr returns the first non-empty environment variable of keys, or def
func envOr(def string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func init() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(out, "Usage: %s [OPTIONS] [server|stdio-mcp]\n\n", os.Args[0])
		fmt.Fprintf(out, "Modes:\n")
		fmt.Fprintf(out, "  server, http           REST API, WebSocket feed and /mcp endpoint (default)\n")
		fmt.Fprintf(out, "  stdio-mcp, mcp-stdio, mcp\n")
		fmt.Fprintf(out, "                         MCP over stdio\n")
		fmt.Fprintf(out, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  %s -port 9090 -config-dir ./configs\n", os.Args[0])
		fmt.Fprintf(out, "  %s -stream-ttl 30m stdio-mcp\n", os.Args[0])
	}
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment variables from .env file")
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	mode := "server"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}
	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	// Frames of every stream are published through the hub
	hub := websocket.NewHub()
	go hub.Run()

	mapService, streams, err := initializeServices(hub)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer streams.StopAll()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCP(mapService, hub)
	case "server", "http":
		runHTTPServer(mapService, hub)
	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// initializeServices wires the parameter store, the stream manager and the
// map service. Streams publish their frames on hub. A background routine
// stops streams that have not been accessed within -stream-ttl.
func initializeServices(hub *websocket.Hub) (service.MapService, *session.Manager, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager(nil, hub.Presenter)
	mapService := service.NewMapService(sessionManager, configManager)

	go sessionCleanupRoutine(sessionManager, *streamTTL)

	return mapService, sessionManager, nil
}

// sessionCleanupRoutine periodically stops streams that have not been accessed
// within maxAge.
func sessionCleanupRoutine(manager *session.Manager, maxAge time.Duration) {
	interval := min(time.Hour, maxAge/2)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
			log.Printf("[STREAM] Cleaned up %d expired streams", removed)
		}
	}
}

// mcpHandler answers single JSON-RPC messages posted to /mcp
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		response := client.GetMCPServer().HandleMessage(r.Context(), body)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("[MCP] Failed to write response: %v", err)
		}
	}
}

// newRouter mounts the API at / and the MCP proxy at /mcp. The proxy calls
// back into the API through baseURL.
func newRouter(mapService service.MapService, hub *websocket.Hub, baseURL string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(mapService, hub))
	mux.HandleFunc("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return mux
}

func logEndpoints(label, base string) {
	log.Printf("%s REST API: %s/api", label, base)
	log.Printf("%s WebSocket: %s/ws?stream=<stream_id>", label, base)
	log.Printf("%s MCP endpoint: %s/mcp", label, base)
}

// tunnelSettings resolves the ngrok switch, token and domain from flags and
// environment. ok is false when no tunnel is wanted.
func tunnelSettings() (token, domain string, ok bool) {
	enabled := *ngrokEnabled
	if v := os.Getenv("NGROK_ENABLED"); v == "true" || v == "1" {
		enabled = true
	}
	if !enabled {
		return "", "", false
	}
	token = *ngrokAuth
	if token == "" {
		token = envOr("", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")
	}
	domain = *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}
	return token, domain, true
}

// serveTunnel exposes handler through ngrok until ctx is cancelled
func serveTunnel(ctx context.Context, handler http.Handler, token, domain string) error {
	if token == "" {
		return errors.New("ngrok enabled but no auth token (use -ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
	}

	var opts []ngrokConfig.HTTPEndpointOption
	if domain != "" {
		opts = append(opts, ngrokConfig.WithDomain(domain))
	}

	tun, err := ngrok.Listen(ctx, ngrokConfig.HTTPEndpoint(opts...), ngrok.WithAuthtoken(token))
	if err != nil {
		return fmt.Errorf("start ngrok tunnel: %w", err)
	}
	defer tun.Close()

	logEndpoints("[NGROK]", tun.URL())

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		return err
	}
	return nil
}

// runHTTPServer serves the API, the WebSocket feed and /mcp until SIGINT or
// SIGTERM, optionally mirrored through an ngrok tunnel.
func runHTTPServer(mapService service.MapService, hub *websocket.Hub) {
	addr := fmt.Sprintf("%s:%d", *host, *port)
	router := newRouter(mapService, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP server listening on %s", addr)
		logEndpoints("", "http://"+addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if token, domain, ok := tunnelSettings(); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveTunnel(ctx, router, token, domain); err != nil {
				log.Printf("[NGROK] %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
}

// waitForServer polls baseURL/health until it answers or ctx expires
func waitForServer(ctx context.Context, client *http.Client, baseURL string) error {
	b := &backoff.Backoff{
		Min:    10 * time.Millisecond,
		Max:    500 * time.Millisecond,
		Factor: 2,
	}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("server at %s not ready after %d attempts: %w", baseURL, int(b.Attempt()), ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
}

// startInternalServer serves the API on a random loopback port and returns
// its base URL once /health answers.
func startInternalServer(mapService service.MapService, hub *websocket.Hub, client *http.Client) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	go func() {
		srv := &http.Server{Handler: api.NewServer(mapService, hub)}
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Internal HTTP server error: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := waitForServer(ctx, client, baseURL); err != nil {
		return "", err
	}
	return baseURL, nil
}

// runStdioMCP serves MCP over stdio. Tools call an already running server at
// externalURL when one answers, otherwise an internal API on loopback.
func runStdioMCP(mapService service.MapService, hub *websocket.Hub) {
	client := &http.Client{Timeout: 2 * time.Second}

	baseURL := externalURL
	probe, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	err := waitForServer(probe, client, externalURL)
	cancel()

	if err == nil {
		log.Printf("Using external API server at %s", externalURL)
	} else {
		log.Printf("No external API server at %s, starting internal one", externalURL)
		if baseURL, err = startInternalServer(mapService, hub, client); err != nil {
			log.Fatalf("Internal HTTP server failed to start: %v", err)
		}
		log.Printf("Internal API server on %s", baseURL)
	}

	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Town Map",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Town Map - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Each map is a grid of terrain blocks and roads with one trip: a route from a
source (@) to a goal (H) found by A*. Streams regenerate a new map every few
seconds; generate_map produces a single deterministic map from a seed.

AVAILABLE TOOLS:
- generate_map: Generate one map from a parameter set and seed
- list_params: List available parameter sets
- create_stream: Start a map stream
- get_stream: Get a stream and its current frame
- list_streams: List running streams
- delete_stream: Stop a stream
- set_viewport: Change a stream's viewport (switches wide/narrow bounds)
- describe_cell: Explain one cell of a stream's current frame`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func numberProp(kind, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        kind,
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	sizeClass := map[string]interface{}{
		"type":        "string",
		"enum":        []string{"wide", "narrow"},
		"description": "Bound set to generate with (default narrow)",
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "generate_map",
		Description: "Generate a single map. The same params, seed and size class always give the same map.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"params":     stringProp("Parameter set name (optional, defaults to the server default)"),
				"seed":       numberProp("integer", "Random seed (optional, default 0)"),
				"size_class": sizeClass,
			},
		},
	}, c.handleGenerateMap)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_params",
		Description: "List available parameter sets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListParams)

	// Streams
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_stream",
		Description: "Start a stream that keeps generating and revealing maps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"params":     stringProp("Parameter set name (optional)"),
				"seed":       numberProp("integer", "Random seed (optional, random when omitted)"),
				"size_class": sizeClass,
			},
		},
	}, c.handleCreateStream)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_streams",
		Description: "List all running map streams",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListStreams)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_stream",
		Description: "Get a stream and the map it is currently showing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"stream_id": stringProp("Stream ID"),
			},
			Required: []string{"stream_id"},
		},
	}, c.handleGetStream)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_stream",
		Description: "Stop and remove a stream",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"stream_id": stringProp("Stream ID"),
			},
			Required: []string{"stream_id"},
		},
	}, c.handleDeleteStream)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_viewport",
		Description: "Set the viewport of a stream. A change of size class restarts the stream.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"stream_id":  stringProp("Stream ID"),
				"width_rem":  numberProp("number", "Viewport width in rem"),
				"columns":    numberProp("integer", "Terminal width in columns"),
				"size_class": sizeClass,
			},
			Required: []string{"stream_id"},
		},
	}, c.handleSetViewport)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe one cell of a stream's current map (x grows right, y grows down)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"stream_id": stringProp("Stream ID"),
				"x":         numberProp("integer", "Column"),
				"y":         numberProp("integer", "Row"),
			},
			Required: []string{"stream_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleGenerateMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query := url.Values{}
	if params := cast.ToString(args["params"]); params != "" {
		query.Set("params", params)
	}
	query.Set("seed", cast.ToString(cast.ToUint64(args["seed"])))
	if size := cast.ToString(args["size_class"]); size != "" {
		query.Set("size", size)
	}

	var snapshot engine.Snapshot
	if err := c.apiCall(ctx, "GET", "/api/maps?"+query.Encode(), nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snapshot)), nil
}

func (c *Client) handleListParams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int                  `json:"count"`
		Params []service.ParamsInfo `json:"params"`
	}

	if err := c.apiCall(ctx, "GET", "/api/params", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Parameter Sets (%d):\n\n", response.Count)
	for _, p := range response.Params {
		result += fmt.Sprintf("- %s: %s (%dx%d) - %s\n", p.ParamsID, p.Name, p.Width, p.Height, p.Description)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCreateStream(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	body := service.StreamRequest{
		ParamsName: cast.ToString(args["params"]),
		Viewport:   service.Viewport{SizeClass: cast.ToString(args["size_class"])},
	}
	if seed, ok := args["seed"]; ok {
		s := cast.ToUint64(seed)
		body.Seed = &s
	}

	var stream service.StreamInfo
	if err := c.apiCall(ctx, "POST", "/api/streams", body, &stream); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStreamInfo(&stream)), nil
}

func (c *Client) handleListStreams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                  `json:"count"`
		Streams []service.StreamInfo `json:"streams"`
	}

	if err := c.apiCall(ctx, "GET", "/api/streams", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Streams (%d):\n\n", response.Count)
	for _, s := range response.Streams {
		result += fmt.Sprintf("- %s (Params: %s, Size: %s, Maps shown: %d, Created: %s)\n",
			s.ID, s.ParamsName, s.SizeClass, s.Mounts, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetStream(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streamID := cast.ToString(request.GetArguments()["stream_id"])

	var stream service.StreamInfo
	if err := c.apiCall(ctx, "GET", "/api/streams/"+url.PathEscape(streamID), nil, &stream); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStreamInfo(&stream)), nil
}

func (c *Client) handleDeleteStream(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streamID := cast.ToString(request.GetArguments()["stream_id"])

	if err := c.apiCall(ctx, "DELETE", "/api/streams/"+url.PathEscape(streamID), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Stream %s stopped", streamID)), nil
}

func (c *Client) handleSetViewport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	streamID := cast.ToString(args["stream_id"])

	viewport := service.Viewport{
		SizeClass: cast.ToString(args["size_class"]),
		WidthRem:  cast.ToFloat64(args["width_rem"]),
		Columns:   cast.ToInt(args["columns"]),
	}

	var stream service.StreamInfo
	path := fmt.Sprintf("/api/streams/%s/viewport", url.PathEscape(streamID))
	if err := c.apiCall(ctx, "POST", path, viewport, &stream); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Stream %s now uses %s bounds", stream.ID, stream.SizeClass)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	streamID := cast.ToString(args["stream_id"])
	x := cast.ToInt(args["x"])
	y := cast.ToInt(args["y"])

	var snapshot engine.Snapshot
	path := fmt.Sprintf("/api/streams/%s/frame", url.PathEscape(streamID))
	if err := c.apiCall(ctx, "GET", path, nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	description, err := engine.DescribeCell(&snapshot, x, y)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	at := engine.Index{X: x, Y: y}
	var result strings.Builder
	result.WriteString(description + "\n")
	if i := engine.RouteIndex(snapshot.Route, at); i >= 0 {
		result.WriteString(fmt.Sprintf("Step %d of %d on the route\n", i, len(snapshot.Route)-1))
	}
	result.WriteString(fmt.Sprintf("Distance to source: %d, to goal: %d\n",
		engine.ManhattanDistance(at, snapshot.Source), engine.ManhattanDistance(at, snapshot.Goal)))

	return mcp.NewToolResultText(result.String()), nil
}

// Formatting helpers

func formatStreamInfo(stream *service.StreamInfo) string {
	header := fmt.Sprintf("Stream: %s\nParams: %s\nSize class: %s\nSeed: %d\nMaps shown: %d\nCreated: %s\n\n",
		stream.ID, stream.ParamsName, stream.SizeClass, stream.Seed, stream.Mounts,
		stream.CreatedAt.Format("2006-01-02 15:04:05"))
	if stream.Current == nil {
		return header + "No map mounted yet"
	}
	return header + formatSnapshot(stream.Current)
}

func formatSnapshot(s *engine.Snapshot) string {
	var result strings.Builder

	result.WriteString(fmt.Sprintf("Map %dx%d (%s) | Source: (%d,%d) | Goal: (%d,%d) | Route: %d cells, length %.1f | Reveal: %dms\n",
		s.Width, s.Height, s.SizeClass, s.Source.X, s.Source.Y, s.Goal.X, s.Goal.Y,
		len(s.Route), s.Length, s.DurationMs))
	result.WriteString(fmt.Sprintf("Attempts: %d | Regenerations: %d | Roads: %d\n\n",
		s.Stats.Attempts, s.Stats.Regenerations, s.Stats.Roads))

	for _, row := range s.Rows {
		result.WriteString(row)
		result.WriteByte('\n')
	}

	result.WriteString("\nLegend: ")
	keys := make([]string, 0, len(s.Legend))
	for k := range s.Legend {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			result.WriteString(", ")
		}
		result.WriteString(k + "=" + s.Legend[k])
	}
	result.WriteByte('\n')

	return result.String()
}

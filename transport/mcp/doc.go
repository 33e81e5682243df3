// Package mcp exposes the map server to AI agents over the Model Context
// Protocol.
//
// The client is a thin proxy: every tool calls the REST API and formats the
// JSON response as text. Maps are rendered as their legend rows so an agent
// can read the grid directly.
//
// Tools:
//   - generate_map: one deterministic map from params, seed and size class
//   - list_params: available parameter sets
//   - create_stream, get_stream, list_streams, delete_stream: stream lifecycle
//   - set_viewport: switch a stream between wide and narrow bounds
//   - describe_cell: legend meaning and route position of one cell
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp

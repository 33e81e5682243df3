// Package api provides the HTTP REST API for the map server.
//
// Endpoints:
//
// Streams:
//   - POST /api/streams - Start a stream ({"params", "seed", "viewport"})
//   - GET /api/streams - List streams (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/streams/{id} - Stream details with the current frame
//   - DELETE /api/streams/{id} - Stop a stream
//   - POST /api/streams/{id}/viewport - Change the viewport ({"width_rem"}, {"columns"} or {"size_class"})
//   - GET /api/streams/{id}/frame - Current frame as JSON
//   - GET /api/streams/{id}/frame.svg - Current frame as an SVG document
//
// One-shot maps:
//   - GET /api/maps?params=&seed=&size= - Generate one map
//   - POST /api/maps - Generate from a request body, optionally with inline params
//   - GET /api/maps.svg?params=&seed=&size= - Same map as SVG
//
// Parameter sets:
//   - GET /api/params - List parameter sets
//   - POST /api/params - Save a parameter set (validated first)
//   - GET /api/params/schema - JSON schema of a parameter set
//   - GET /api/params/{name} - Load one parameter set
//
// Other:
//   - GET /ws?stream={id} - WebSocket feed of mount/unmount/clear events
//   - GET /health - Liveness check
//
// Errors are returned as JSON with a status code derived from the service
// error: unknown streams and params are 404, invalid params 400, a stream
// with nothing mounted 409 and a parameter set that cannot produce a route
// 422.
//
//	{"error": "stream not found: abc12345"}
package api

// Package service provides the business logic layer for the town map server.
//
// The service package implements:
//   - Map stream management, one scheduler loop per stream
//   - Viewport changes resolved through the breakpoint predicate
//   - One-shot seeded map generation
//   - Parameter set listing, loading and saving
//
// Core Interfaces:
//
// MapService is the main service interface used by the HTTP, WebSocket and
// MCP transports. SessionManager owns stream lifecycles and ConfigManager
// loads parameter sets.
//
// Usage:
//
//	streams := session.NewManager(scheduler.SystemClock{}, hub.Presenter)
//	configs, _ := config.NewManager("configs")
//	mapService := service.NewMapService(streams, configs)
//
//	info, err := mapService.CreateStream(ctx, service.StreamRequest{
//		Viewport: service.Viewport{WidthRem: 80},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	frame, err := mapService.CurrentFrame(ctx, info.ID)
package service

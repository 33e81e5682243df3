// Package session provides map stream management for the town map server.
//
// The session package implements:
//   - Thread-safe stream storage and retrieval
//   - Stream ID generation from random UUIDs
//   - One engine and one scheduler per stream
//   - Stream cleanup and expiration
//
// Core Types:
//
// Manager creates service.Stream values. Each stream owns its own engine
// arena and its own animation loop, mounting frames on the presenter the
// PresenterFactory returns for its ID.
//
// Usage:
//
//	manager := session.NewManager(scheduler.SystemClock{}, hub.Presenter)
//
//	stream, err := manager.Create("", service.StreamConfig{
//		Params:    engine.DefaultParams(),
//		SizeClass: engine.Wide,
//		Seed:      42,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Cleanup:
//
// Streams are deleted explicitly or expire after a period without access;
// either way their scheduler is stopped so no timer outlives the stream.
package session

// Package engine generates procedural town maps with a walking route from a
// random source to a house.
//
// The engine implements:
//   - Probabilistic terrain blocks and missing-pavement removal
//   - Road run detection along both axes with stray filtering
//   - Zone assessment of traversable cells and goal candidates
//   - A* search over a binary min-heap keyed through the grid
//   - Draw command frames and JSON snapshots for presenters
//
// Core Types:
//
// MapEngine owns one flat cell arena, its coordinate pools and the heap, all
// sized once from Params. Frame is a reusable output buffer filled by
// Generate; Snapshot is its owned copy.
//
// Usage:
//
//	params, err := engine.LoadParams("configs/default.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng, err := engine.NewEngine(params, engine.NewRand(42))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	frame := eng.NewFrame()
//	if err := eng.Generate(frame); err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(frame.Snapshot().Rows)
package engine

// Package config provides parameter set management for the town map server.
//
// The config package handles:
//   - Loading parameter sets from JSON or YAML files
//   - Validation through engine.ValidateParams
//   - Default parameter set selection
//   - Parameter set discovery, listing and saving
//
// Parameter Format:
//
// Each file in the configs directory defines one engine.Params: grid size,
// block probabilities, removal probability, route constraints, animation
// timings and the wide and narrow bound sets. Files are addressed by name
// without extension; .json is tried before .yaml and .yml.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	params, err := manager.LoadParams("compact")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	defaults := manager.GetDefault()
//	infos, err := manager.ListParams()
package config

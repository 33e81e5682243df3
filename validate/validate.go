// Command validate checks the parameter files in a configs directory. For
// each file it checks:
//   - JSON or YAML structure
//   - every rule of engine.ValidateParams (all violations are listed)
//   - that both goal rectangles leave room for at least one goal
//   - a seeded smoke run: maps are generated in both size classes and every
//     route found is checked for adjacency and passability
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/townmap/game/engine"
	"go.uber.org/multierr"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateParams loads and validates a single parameter file, then smoke
// runs it with seeds 1..runs
func validateParams(filePath string, runs int) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	params, err := engine.DecodeParams(filePath, data)
	if err != nil {
		result.fail("Invalid file: %v", err)
		return result
	}

	if err := engine.ValidateParams(params); err != nil {
		for _, e := range multierr.Errors(err) {
			result.fail("%v", e)
		}
		return result
	}

	for _, sc := range []engine.SizeClass{engine.Narrow, engine.Wide} {
		b := params.BoundsFor(sc)
		cols := params.Width - b.Goal.Left - b.Goal.Right - 1
		rows := params.Height - b.Goal.Top - b.Goal.Bottom - 1
		if cols <= 0 || rows <= 0 {
			result.fail("%s goal rectangle is empty: margins %+v on a %dx%d grid", sc, b.Goal, params.Width, params.Height)
		}
	}
	if !result.Valid {
		return result
	}

	smokeRun(&result, params, runs)
	return result
}

// smokeRun generates maps in both size classes. A class that never finds a
// route is an error; one that sometimes fails is reported.
func smokeRun(result *ValidationResult, params *engine.Params, runs int) {
	for _, sc := range []engine.SizeClass{engine.Narrow, engine.Wide} {
		routed, attempts := 0, 0
		for seed := 1; seed <= runs; seed++ {
			eng, err := engine.NewEngine(params, engine.NewRand(uint64(seed)))
			if err != nil {
				result.fail("Engine rejected params: %v", err)
				return
			}
			eng.SetSizeClass(sc)
			frame := eng.NewFrame()

			err = eng.Generate(frame)
			attempts += eng.Stats().Attempts
			if errors.Is(err, engine.ErrNoRoute) {
				continue
			}
			if err != nil {
				result.fail("%s seed %d: %v", sc, seed, err)
				continue
			}
			if msg := checkRoute(frame); msg != "" {
				result.fail("%s seed %d: %s", sc, seed, msg)
				continue
			}
			routed++
		}

		switch {
		case routed == 0:
			result.fail("%s: no route in %d maps", sc, runs)
		case routed < runs:
			result.info("%s: %d/%d maps routed (%.1f goal attempts per map)", sc, routed, runs, float64(attempts)/float64(runs))
		default:
			result.info("%s: all %d maps routed (%.1f goal attempts per map)", sc, runs, float64(attempts)/float64(runs))
		}
	}
}

// checkRoute verifies the route of a generated frame
func checkRoute(f *engine.Frame) string {
	if len(f.Route) < 2 {
		return fmt.Sprintf("route too short (%d cells)", len(f.Route))
	}
	if f.Route[0] != f.Source || !engine.AtGoal(f.Route[len(f.Route)-1], f.Goal) {
		return "route does not join source and goal"
	}
	for i, at := range f.Route {
		info, ok := f.CellAt(at.X, at.Y)
		if !ok || !info.Passable {
			return fmt.Sprintf("route cell (%d,%d) is not passable", at.X, at.Y)
		}
		if i > 0 && !engine.IsAdjacent(f.Route[i-1], at) {
			return fmt.Sprintf("route jumps from (%d,%d) to (%d,%d)", f.Route[i-1].X, f.Route[i-1].Y, at.X, at.Y)
		}
	}
	return ""
}

// paramFiles returns the parameter files of dir in name order
func paramFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func main() {
	configDir := flag.String("configs", "../configs", "Directory of parameter files")
	runs := flag.Int("runs", 20, "Smoke-run maps per size class")
	flag.Parse()

	files, err := paramFiles(*configDir)
	if err != nil {
		fmt.Printf("Error finding parameter files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateParams(file, *runs)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All parameter sets are valid!")
	} else {
		fmt.Println("❌ Some parameter sets have errors")
		os.Exit(1)
	}
}

// Command analyze generates many maps per parameter set and prints
// statistics: how often a route is found, how many goal attempts and
// regenerations it takes, route lengths and generation time.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/townmap/game/engine"
	"golang.org/x/sync/errgroup"
)

// Report summarizes the runs of one parameter set in one size class
type Report struct {
	Params    string
	SizeClass engine.SizeClass
	Runs      int
	Routes    int
	NoRoute   int

	Attempts      int
	Regenerations int
	MaxAttempts   int
	RouteCells    int
	MinRoute      int
	MaxRoute      int
	Length        float64
	Elapsed       time.Duration
}

// SuccessRate is the share of runs that found a route
func (r *Report) SuccessRate() float64 {
	if r.Runs == 0 {
		return 0
	}
	return float64(r.Routes) / float64(r.Runs)
}

// MeanRoute is the mean number of route cells over successful runs
func (r *Report) MeanRoute() float64 {
	if r.Routes == 0 {
		return 0
	}
	return float64(r.RouteCells) / float64(r.Routes)
}

func (r *Report) add(stats engine.Stats, route int, length float64, err error) {
	r.Runs++
	r.Attempts += stats.Attempts
	r.Regenerations += stats.Regenerations
	r.MaxAttempts = max(r.MaxAttempts, stats.Attempts)
	r.Elapsed += stats.Elapsed
	if err != nil {
		r.NoRoute++
		return
	}
	if r.Routes == 0 || route < r.MinRoute {
		r.MinRoute = route
	}
	r.MaxRoute = max(r.MaxRoute, route)
	r.Routes++
	r.RouteCells += route
	r.Length += length
}

func (r *Report) merge(o *Report) {
	if o.Routes > 0 && (r.Routes == 0 || o.MinRoute < r.MinRoute) {
		r.MinRoute = o.MinRoute
	}
	r.MaxRoute = max(r.MaxRoute, o.MaxRoute)
	r.MaxAttempts = max(r.MaxAttempts, o.MaxAttempts)
	r.Runs += o.Runs
	r.Routes += o.Routes
	r.NoRoute += o.NoRoute
	r.Attempts += o.Attempts
	r.Regenerations += o.Regenerations
	r.RouteCells += o.RouteCells
	r.Length += o.Length
	r.Elapsed += o.Elapsed
}

// Analyze generates runs maps with seeds base..base+runs-1 spread over
// workers. Each worker owns one engine and one frame.
func Analyze(ctx context.Context, name string, params *engine.Params, sc engine.SizeClass, runs, workers int, base uint64) (*Report, error) {
	workers = max(1, min(workers, runs))
	partial := make([]*Report, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			report := &Report{}
			partial[w] = report

			rng := &reseedable{}
			eng, err := engine.NewEngine(params, rng)
			if err != nil {
				return err
			}
			eng.SetSizeClass(sc)
			frame := eng.NewFrame()

			for i := w; i < runs; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				rng.seed(base + uint64(i))
				eng.Reset()
				err := eng.Generate(frame)
				if err != nil && !errors.Is(err, engine.ErrNoRoute) {
					return fmt.Errorf("seed %d: %w", base+uint64(i), err)
				}
				report.add(eng.Stats(), len(frame.Route), frame.Length, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := &Report{Params: name, SizeClass: sc}
	for _, p := range partial {
		total.merge(p)
	}
	return total, nil
}

// reseedable lets one engine replay any seed
type reseedable struct {
	r engine.Rand
}

func (s *reseedable) seed(seed uint64) { s.r = engine.NewRand(seed) }

func (s *reseedable) Float64() float64 {
	if s.r == nil {
		s.seed(0)
	}
	return s.r.Float64()
}

// Print writes reports as an aligned table
func Print(w io.Writer, reports []*Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMS\tSIZE\tRUNS\tROUTES\tNO ROUTE\tAVG ATTEMPTS\tMAX ATTEMPTS\tREGEN\tROUTE (min/avg/max)\tAVG LENGTH\tAVG TIME")
	for _, r := range reports {
		avgAttempts, avgLength, avgTime := 0.0, 0.0, time.Duration(0)
		if r.Runs > 0 {
			avgAttempts = float64(r.Attempts) / float64(r.Runs)
			avgTime = r.Elapsed / time.Duration(r.Runs)
		}
		if r.Routes > 0 {
			avgLength = r.Length / float64(r.Routes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d (%.0f%%)\t%d\t%.2f\t%d\t%d\t%d/%.1f/%d\t%.1f\t%s\n",
			r.Params, r.SizeClass, r.Runs, r.Routes, 100*r.SuccessRate(), r.NoRoute,
			avgAttempts, r.MaxAttempts, r.Regenerations,
			r.MinRoute, r.MeanRoute(), r.MaxRoute, avgLength, avgTime.Round(time.Microsecond))
	}
	tw.Flush()
}

// paramFiles lists the parameter files to analyze: explicit args, or every
// file in dir
func paramFiles(dir string, args []string) ([]string, error) {
	if len(args) > 0 {
		files := make([]string, len(args))
		for i, a := range args {
			if filepath.Dir(a) == "." && filepath.Ext(a) == "" {
				a = filepath.Join(dir, a+".json")
			}
			files[i] = a
		}
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read configs: %w", err)
	}
	var files []string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func sizeClasses(s string) ([]engine.SizeClass, error) {
	switch strings.ToLower(s) {
	case "both", "":
		return []engine.SizeClass{engine.Narrow, engine.Wide}, nil
	case "wide":
		return []engine.SizeClass{engine.Wide}, nil
	case "narrow":
		return []engine.SizeClass{engine.Narrow}, nil
	}
	return nil, fmt.Errorf("unknown size class %q (want wide, narrow or both)", s)
}

func run(ctx context.Context, cmd *cli.Command) error {
	classes, err := sizeClasses(cmd.String("size"))
	if err != nil {
		return err
	}
	files, err := paramFiles(cmd.String("configs"), cmd.Args().Slice())
	if err != nil {
		return err
	}

	var reports []*Report
	for _, file := range files {
		params, err := engine.LoadParams(file)
		if err != nil {
			log.Printf("[ANALYZE] skipping %s: %v", file, err)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		for _, sc := range classes {
			report, err := Analyze(ctx, name, params, sc, cmd.Int("runs"), cmd.Int("workers"), cmd.Uint64("seed"))
			if err != nil {
				log.Printf("[ANALYZE] %s (%s): %v", name, sc, err)
				continue
			}
			reports = append(reports, report)
		}
	}

	Print(cmd.Writer, reports)
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "generate maps in bulk and report route statistics per parameter set",
		ArgsUsage: "[params files or names...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "configs", Value: "configs", Usage: "directory of parameter files"},
			&cli.IntFlag{Name: "runs", Aliases: []string{"n"}, Value: 200, Usage: "maps per parameter set and size class"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "concurrent generators"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "first seed"},
			&cli.StringFlag{Name: "size", Value: "both", Usage: "wide, narrow or both"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// Command preview shows the map loop in a terminal. By default it runs its
// own engine and scheduler; with --remote it follows a stream of a running
// map server instead. The terminal width selects the size class and a
// resize switches it.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/scheduler"
)

// Redraw period while a route is being revealed
const tick = 50 * time.Millisecond

// loop owns the screen events. resize is called with the new width.
func loop(ctx context.Context, screen tcell.Screen, presenter *TermPresenter, resize func(columns int)) {
	events := make(chan tcell.Event, 16)
	go func() {
		// PollEvent returns nil once the screen is finalized
		for ev := screen.PollEvent(); ev != nil; ev = screen.PollEvent() {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		close(events)
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			presenter.Draw()
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				w, _ := ev.Size()
				resize(w)
				screen.Sync()
				presenter.Draw()
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return
				}
			}
		}
	}
}

func loadParams(cmd *cli.Command) (*engine.Params, error) {
	params := engine.DefaultParams()
	if path := cmd.String("params"); path != "" {
		var err error
		if params, err = engine.LoadParams(path); err != nil {
			return nil, err
		}
	}
	params.DebugZones = params.DebugZones || cmd.Bool("debug-zones")
	return params, nil
}

func runLocal(ctx context.Context, cmd *cli.Command, screen tcell.Screen) error {
	params, err := loadParams(cmd)
	if err != nil {
		return err
	}

	seed := cmd.Uint64("seed")
	if !cmd.IsSet("seed") {
		seed = uint64(time.Now().UnixNano())
	}
	eng, err := engine.NewEngine(params, engine.NewRand(seed))
	if err != nil {
		return err
	}

	presenter := NewTermPresenter(screen, scheduler.SystemClock{})
	presenter.SetStatus(fmt.Sprintf("%s seed %d  q quit", params.Name, seed))
	sched := scheduler.New(eng, presenter, scheduler.SystemClock{})

	w, _ := screen.Size()
	sched.Start(params.SizeClassForColumns(w))
	defer sched.Stop()

	loop(ctx, screen, presenter, func(columns int) {
		sched.SetSizeClass(params.SizeClassForColumns(columns))
	})
	return nil
}

func runRemote(ctx context.Context, cmd *cli.Command, screen tcell.Screen) error {
	base := cmd.String("remote")
	w, _ := screen.Size()

	streamID := cmd.String("stream")
	if streamID == "" {
		var seed *uint64
		if cmd.IsSet("seed") {
			s := cmd.Uint64("seed")
			seed = &s
		}
		var err error
		if streamID, err = createStream(ctx, base, cmd.String("params"), seed, w); err != nil {
			return err
		}
	}

	remote, err := DialRemote(ctx, base, streamID)
	if err != nil {
		return err
	}
	defer remote.Close()

	presenter := NewTermPresenter(screen, scheduler.SystemClock{})
	presenter.SetStatus(fmt.Sprintf("stream %s  q quit", streamID))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- remote.Run(ctx, presenter)
		cancel()
	}()

	loop(ctx, screen, presenter, func(columns int) {
		if err := remote.SetColumns(ctx, columns); err != nil {
			log.Printf("[PREVIEW] resize not sent: %v", err)
		}
	})
	cancel()
	return <-errc
}

func run(ctx context.Context, cmd *cli.Command) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	// Logs would garble the screen
	if !cmd.Bool("verbose") {
		log.SetOutput(io.Discard)
	}

	if cmd.String("remote") != "" {
		return runRemote(ctx, cmd, screen)
	}
	return runLocal(ctx, cmd, screen)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "watch generated maps in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "params", Aliases: []string{"p"}, Usage: "parameter file (local) or parameter set name (remote)"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed (default: time based locally, server chosen remotely)"},
			&cli.BoolFlag{Name: "debug-zones", Usage: "overlay traversable cells and goal candidates"},
			&cli.StringFlag{Name: "remote", Usage: "map server base URL, e.g. http://localhost:8080"},
			&cli.StringFlag{Name: "stream", Usage: "existing stream ID to follow (remote only)"},
			&cli.BoolFlag{Name: "verbose", Usage: "keep logging to stderr"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

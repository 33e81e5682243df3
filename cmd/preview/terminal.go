package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/scheduler"
)

var (
	styleDefault  = tcell.StyleDefault
	stylePavement = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleRemoved  = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleRoute    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHouse    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleStatus   = tcell.StyleDefault.Reverse(true)

	categoryStyles = map[string]tcell.Style{
		"green": tcell.StyleDefault.Foreground(tcell.ColorGreen),
		"store": tcell.StyleDefault.Foreground(tcell.ColorOrange),
		"water": tcell.StyleDefault.Foreground(tcell.ColorBlue),
	}
)

type mounted struct {
	snapshot *engine.Snapshot
	at       time.Time
}

// TermPresenter draws mounted frames on a terminal. The newest mounted
// frame is on screen; its route is revealed cell by cell over the frame's
// duration after one fade.
type TermPresenter struct {
	screen tcell.Screen
	clock  scheduler.Clock
	status string

	mu     sync.Mutex
	frames []mounted
}

// NewTermPresenter creates a presenter for screen
func NewTermPresenter(screen tcell.Screen, clock scheduler.Clock) *TermPresenter {
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	return &TermPresenter{screen: screen, clock: clock}
}

// Mount implements scheduler.Presenter
func (p *TermPresenter) Mount(f *engine.Frame) {
	p.MountSnapshot(f.Snapshot())
}

// MountSnapshot shows a frame that is already an owned copy
func (p *TermPresenter) MountSnapshot(s *engine.Snapshot) {
	p.mu.Lock()
	p.frames = append(p.frames, mounted{snapshot: s, at: p.clock.Now()})
	p.mu.Unlock()
	p.Draw()
}

func (p *TermPresenter) Unmount(id int) {
	p.mu.Lock()
	for i, m := range p.frames {
		if m.snapshot.ID == id {
			p.frames = append(p.frames[:i], p.frames[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
	p.Draw()
}

func (p *TermPresenter) Clear() {
	p.mu.Lock()
	p.frames = p.frames[:0]
	p.mu.Unlock()
	p.Draw()
}

// SetStatus sets the text of the bottom line
func (p *TermPresenter) SetStatus(status string) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
}

// Current returns the frame on screen, or nil
func (p *TermPresenter) Current() *engine.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return nil
	}
	return p.frames[len(p.frames)-1].snapshot
}

// revealed is how many route cells are drawn elapsed after mounting
func revealed(s *engine.Snapshot, elapsed time.Duration) int {
	fade := time.Duration(s.FadeMs) * time.Millisecond
	duration := time.Duration(s.DurationMs) * time.Millisecond
	switch {
	case elapsed < fade:
		return 0
	case duration <= 0 || elapsed >= fade+duration:
		return len(s.Route)
	}
	return int(float64(len(s.Route)) * float64(elapsed-fade) / float64(duration))
}

func cellStyle(s *engine.Snapshot, r rune) tcell.Style {
	switch r {
	case engine.LegendSource, engine.LegendRoute:
		return styleRoute
	case engine.LegendGoal:
		return styleHouse
	case engine.LegendPavement, engine.LegendPassable, engine.LegendCandidate:
		return stylePavement
	case engine.LegendRemoved:
		return styleRemoved
	}
	if style, ok := categoryStyles[s.Legend[string(r)]]; ok {
		return style
	}
	return styleDefault
}

// Draw renders the newest frame centered on the screen
func (p *TermPresenter) Draw() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.screen.Clear()
	width, height := p.screen.Size()

	if len(p.frames) > 0 {
		m := p.frames[len(p.frames)-1]
		s := m.snapshot
		shown := revealed(s, p.clock.Now().Sub(m.at))

		hidden := make(map[engine.Index]bool, len(s.Route))
		for _, at := range s.Route[shown:] {
			hidden[at] = true
		}

		left := max(0, (width-s.Width)/2)
		top := max(0, (height-1-s.Height)/2)
		for y, row := range s.Rows {
			for x, r := range row {
				if hidden[engine.Index{X: x, Y: y}] && r != engine.LegendSource && r != engine.LegendGoal {
					r = engine.LegendPassable
				}
				if r == engine.LegendPassable || r == engine.LegendPavement {
					r = ' '
				}
				p.screen.SetContent(left+x, top+y, r, nil, cellStyle(s, r))
			}
		}

		status := fmt.Sprintf(" map #%d  %s  route %d/%d  attempts %d  regenerations %d ",
			s.ID, s.SizeClass, shown, len(s.Route), s.Stats.Attempts, s.Stats.Regenerations)
		if p.status != "" {
			status += " " + p.status + " "
		}
		p.drawStatus(status, width, height)
	} else {
		p.drawStatus(" waiting for a map  "+p.status, width, height)
	}

	p.screen.Show()
}

func (p *TermPresenter) drawStatus(text string, width, height int) {
	x := 0
	for _, r := range text {
		if x >= width {
			break
		}
		p.screen.SetContent(x, height-1, r, nil, styleStatus)
		x++
	}
}

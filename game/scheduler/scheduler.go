package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/wricardo/townmap/game/engine"
)

// Scheduler drives the map loop: it mounts the current frame, generates the
// next one into the other buffer straight away and mounts it once the
// current frame has faded in, revealed its route and faded out.
type Scheduler struct {
	mu        sync.Mutex
	eng       engine.Engine
	presenter Presenter
	clock     Clock

	frames  [2]*engine.Frame
	slot    int // buffer the next mount reads
	mounted int // buffer on screen, -1 before the first mount
	ready   bool

	sizeClass engine.SizeClass
	running   bool
	epoch     uint64
	nextID    int
	mounts    int

	mountTimer   Timer
	unmountTimer Timer
}

// New creates a stopped scheduler; a nil presenter discards frames and a
// nil clock uses the system timer.
func New(eng engine.Engine, presenter Presenter, clock Clock) *Scheduler {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		eng:       eng,
		presenter: presenter,
		clock:     clock,
		frames:    [2]*engine.Frame{eng.NewFrame(), eng.NewFrame()},
		mounted:   -1,
		sizeClass: eng.SizeClass(),
	}
}

// Start begins the loop in the given size class. Starting a running
// scheduler restarts it.
func (s *Scheduler) Start(sc engine.SizeClass) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = true
	s.restart(sc)
}

// SetSizeClass reacts to a viewport change. An unchanged size class is
// ignored; a changed one cancels both timers, clears the presenter, swaps
// the bounds and restarts from a fresh generation.
func (s *Scheduler) SetSizeClass(sc engine.SizeClass) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc == s.sizeClass && s.running {
		return
	}
	if !s.running {
		s.sizeClass = sc
		s.eng.SetSizeClass(sc)
		return
	}
	log.Printf("[SCHED] Size class changed %s -> %s, restarting", s.sizeClass, sc)
	s.restart(sc)
}

// Stop cancels both timers and clears the presenter
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.epoch++
	s.stopTimers()
	s.presenter.Clear()
	s.mounted = -1
}

// Running reports whether the loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SizeClass returns the active size class
func (s *Scheduler) SizeClass() engine.SizeClass {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizeClass
}

// Mounts returns how many frames have been mounted since creation
func (s *Scheduler) Mounts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounts
}

// Current returns a copy of the frame on screen, or nil
func (s *Scheduler) Current() *engine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted < 0 {
		return nil
	}
	return s.frames[s.mounted].Snapshot()
}

func (s *Scheduler) restart(sc engine.SizeClass) {
	s.epoch++
	s.stopTimers()
	s.presenter.Clear()
	s.sizeClass = sc
	s.eng.SetSizeClass(sc)
	s.mounted = -1
	s.ready = false
	s.prepare(s.epoch)
}

func (s *Scheduler) stopTimers() {
	if s.mountTimer != nil {
		s.mountTimer.Stop()
		s.mountTimer = nil
	}
	if s.unmountTimer != nil {
		s.unmountTimer.Stop()
		s.unmountTimer = nil
	}
}

// guard serializes a timer callback and drops it once its schedule was cancelled
func (s *Scheduler) guard(epoch uint64, fn func(epoch uint64)) func() {
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.running || s.epoch != epoch {
			return
		}
		fn(epoch)
	}
}

// generate fills the frame at the next-mount slot
func (s *Scheduler) generate() error {
	f := s.frames[s.slot]
	s.nextID++
	f.ID = s.nextID
	s.eng.Reset()
	if err := s.eng.Generate(f); err != nil {
		log.Printf("[SCHED] Map %d failed: %v", f.ID, err)
		return err
	}
	return nil
}

// prepare generates a frame and mounts it, or retries after one fade
func (s *Scheduler) prepare(epoch uint64) {
	if err := s.generate(); err != nil {
		fade := s.eng.Params().Fade()
		s.mountTimer = s.clock.AfterFunc(fade, s.guard(epoch, s.prepare))
		return
	}
	s.show(epoch)
}

func (s *Scheduler) show(epoch uint64) {
	p := s.eng.Params()
	f := s.frames[s.slot]
	id, duration := f.ID, f.Duration

	s.presenter.Mount(f)
	s.mounted = s.slot
	s.mounts++

	fade, overlap := p.Fade(), p.Overlap()
	s.unmountTimer = s.clock.AfterFunc(fade+duration+fade+overlap, s.guard(epoch, func(uint64) {
		s.presenter.Unmount(id)
	}))

	s.slot ^= 1
	s.ready = s.generate() == nil

	s.mountTimer = s.clock.AfterFunc(fade+duration+fade, s.guard(epoch, s.advance))
}

func (s *Scheduler) advance(epoch uint64) {
	if s.ready {
		s.show(epoch)
		return
	}
	s.prepare(epoch)
}

// Lifetime is how long a frame stays mounted
func Lifetime(p *engine.Params, reveal time.Duration) time.Duration {
	return p.Fade() + reveal + p.Fade() + p.Overlap()
}

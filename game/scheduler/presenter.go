package scheduler

import "github.com/wricardo/townmap/game/engine"

// Presenter displays generated maps. Frames passed to Mount are reused by
// the scheduler after the callback returns, so a presenter copies whatever
// it keeps (Frame.Snapshot).
type Presenter interface {
	Mount(f *engine.Frame)
	Unmount(id int)
	Clear()
}

// Presenters fans out to several presenters in order
type Presenters []Presenter

func (ps Presenters) Mount(f *engine.Frame) {
	for _, p := range ps {
		p.Mount(f)
	}
}

func (ps Presenters) Unmount(id int) {
	for _, p := range ps {
		p.Unmount(id)
	}
}

func (ps Presenters) Clear() {
	for _, p := range ps {
		p.Clear()
	}
}

// NopPresenter discards everything
type NopPresenter struct{}

func (NopPresenter) Mount(*engine.Frame) {}
func (NopPresenter) Unmount(int)         {}
func (NopPresenter) Clear()              {}

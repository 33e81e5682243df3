// Package svg renders engine snapshots as standalone SVG documents.
package svg

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/wricardo/townmap/game/engine"
)

// Palette maps terrain categories to fill colors. Unknown categories are gray.
var Palette = map[string]string{
	"green": "#9bc27a",
	"store": "#e0b47c",
	"water": "#7fb2e0",
}

const (
	pavement  = "#f4f1ea"
	roadColor = "#ffffff"
	tripColor = "#d9453b"
	ink       = "#3b3b3b"
)

// ContentType is the media type of a rendered document
const ContentType = "image/svg+xml"

func fill(category string) string {
	if c, ok := Palette[category]; ok {
		return c
	}
	return "#bdbdbd"
}

func ms(v int64) string {
	return strconv.FormatInt(v, 10) + "ms"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Document renders a snapshot. The trip reveal is a stroke-dashoffset
// animation driven by the --length and --duration custom properties, delayed
// by one fade.
func Document(s *engine.Snapshot) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}

		p.printf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s" preserveAspectRatio="xMidYMid slice" data-frame="%d" data-size-class="%s">`,
			templ.EscapeString(s.ViewBox), s.ID, templ.EscapeString(s.SizeClass))
		p.style(s)
		p.defs()

		for _, cmd := range s.Commands {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.command(s, cmd)
		}

		p.printf(`</svg>`)
		return p.err
	})
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) style(s *engine.Snapshot) {
	p.printf(`<style>`)
	p.printf(`svg{--fade:%s;--duration:%s;--length:%s}`, ms(s.FadeMs), ms(s.DurationMs), num(s.Length))
	p.printf(`.block{stroke:%s;stroke-width:0.04}`, ink)
	p.printf(`.road{fill:none;stroke:%s;stroke-width:0.6;stroke-linecap:square}`, roadColor)
	p.printf(`.trip{fill:none;stroke:%s;stroke-width:0.3;stroke-linecap:round;stroke-linejoin:round;`+
		`stroke-dasharray:var(--length);stroke-dashoffset:var(--length);`+
		`animation:reveal var(--duration) linear var(--fade) forwards}`, tripColor)
	p.printf(`.source{fill:%s}.source-ripple{fill:none;stroke:%s;stroke-width:0.1;animation:ripple 1.2s ease-out infinite}`, tripColor, tripColor)
	p.printf(`.house{fill:%s;stroke:%s;stroke-width:0.05}`, pavement, ink)
	p.printf(`.left-edge{fill:url(#left-edge)}.right-edge{fill:url(#right-edge)}`)
	p.printf(`.fade{fill:%s;opacity:0;animation:fade var(--fade) ease-in calc(var(--fade) + var(--duration)) forwards}`, pavement)
	p.printf(`.developer__trip{fill:#2e7d32;opacity:0.5}.developer__goal{stroke:#6a1b9a;stroke-width:0.2;opacity:0.6}`)
	p.printf(`@keyframes reveal{to{stroke-dashoffset:0}}`)
	p.printf(`@keyframes fade{to{opacity:1}}`)
	p.printf(`@keyframes ripple{from{r:0.2;opacity:1}to{r:0.9;opacity:0}}`)
	p.printf(`</style>`)
}

func (p *printer) defs() {
	p.printf(`<defs>`)
	p.printf(`<linearGradient id="left-edge" x1="0" x2="1"><stop offset="0" stop-color="%s"/><stop offset="1" stop-color="%s" stop-opacity="0"/></linearGradient>`, pavement, pavement)
	p.printf(`<linearGradient id="right-edge" x1="1" x2="0"><stop offset="0" stop-color="%s"/><stop offset="1" stop-color="%s" stop-opacity="0"/></linearGradient>`, pavement, pavement)
	p.printf(`</defs>`)
}

func (p *printer) command(s *engine.Snapshot, cmd engine.SnapshotCommand) {
	class := templ.EscapeString(string(cmd.Kind))
	switch cmd.Kind {
	case engine.KindBackdrop:
		p.printf(`<path class="%s" fill="%s" d="%s"/>`, class, pavement, cmd.D)
	case engine.KindBlock:
		p.printf(`<path class="%s %s" fill="%s" d="%s"/>`, class,
			templ.EscapeString(cmd.Category), fill(cmd.Category), cmd.D)
	case engine.KindSource, engine.KindSourceRipple, engine.KindDeveloperTrip:
		at := s.Source
		x, y := float64(at.X), float64(at.Y)
		if pt, ok := markerPoint(cmd.D); ok {
			x, y = pt.X, pt.Y
		}
		r := 0.3
		if cmd.Kind == engine.KindDeveloperTrip {
			r = 0.15
		}
		p.printf(`<circle class="%s" cx="%s" cy="%s" r="%s"/>`, class, num(x), num(y), num(r))
	default:
		p.printf(`<path class="%s" d="%s"/>`, class, cmd.D)
	}
}

// markerPoint reads the single point of a marker path ("M{x},{y}")
func markerPoint(d string) (engine.Point, bool) {
	var pt engine.Point
	if _, err := fmt.Sscanf(d, "M%g,%g", &pt.X, &pt.Y); err != nil {
		return pt, false
	}
	return pt, true
}

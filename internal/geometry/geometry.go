// Package geometry computes item bounding boxes on the canvas, tests them
// for overlap and searches for the nearest position that overlaps nothing.
//
// Every function is pure; the caller owns the sibling set being tested.
package geometry

import (
	"math"

	"github.com/nikbrunner/deskmark/internal/model"
)

// Size is a width and height in canvas units.
type Size struct {
	Width  float64
	Height float64
}

// Rect is an axis-aligned box anchored at its top-left corner.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Layout holds the fixed box size and the spiral search parameters.
type Layout struct {
	Item      Size    // bounding box shared by every item
	Spacing   float64 // minimum gap between neighbouring boxes
	TopMargin float64 // strip reserved for the toolbar
	RingStep  float64 // radius increment between rings
	AngleStep float64 // degrees between samples on a ring
	MaxRadius float64 // last ring searched before degrading
}

// DefaultLayout returns 120x120 boxes with a 10 unit gap below an 80 unit
// toolbar, searching rings 15 units apart every 15 degrees out to 200.
func DefaultLayout() Layout {
	return Layout{
		Item:      Size{Width: 120, Height: 120},
		Spacing:   10,
		TopMargin: 80,
		RingStep:  15,
		AngleStep: 15,
		MaxRadius: 200,
	}
}

// Result is the outcome of a free-position search. Degraded is set when no
// ring produced a free spot and Position may still overlap a sibling.
type Result struct {
	Position model.Position
	Degraded bool
}

// Box returns the bounding box of an item anchored at p.
func (l Layout) Box(p model.Position) Rect {
	return Rect{X: p.X, Y: p.Y, Width: l.Item.Width, Height: l.Item.Height}
}

// Overlaps reports whether a and b come closer than the spacing margin on
// both axes.
func (l Layout) Overlaps(a, b Rect) bool {
	return !(a.X+a.Width+l.Spacing <= b.X ||
		b.X+b.Width+l.Spacing <= a.X ||
		a.Y+a.Height+l.Spacing <= b.Y ||
		b.Y+b.Height+l.Spacing <= a.Y)
}

// FindOverlapping returns every sibling other than excludeID whose box
// overlaps a box placed at p.
func (l Layout) FindOverlapping(p model.Position, siblings model.Items, excludeID string) model.Items {
	var out model.Items
	box := l.Box(p)
	for _, s := range siblings {
		m := s.Base()
		if excludeID != "" && m.ID == excludeID {
			continue
		}
		if l.Overlaps(box, l.Box(m.Position)) {
			out = append(out, s)
		}
	}
	return out
}

// collides is FindOverlapping without the allocation.
func (l Layout) collides(p model.Position, siblings model.Items, excludeID string) bool {
	box := l.Box(p)
	for _, s := range siblings {
		m := s.Base()
		if excludeID != "" && m.ID == excludeID {
			continue
		}
		if l.Overlaps(box, l.Box(m.Position)) {
			return true
		}
	}
	return false
}

// Clamp moves p inside bounds so the whole box fits, keeping it below the
// toolbar strip.
func (l Layout) Clamp(p model.Position, bounds Size) model.Position {
	maxX, maxY := l.max(bounds)
	return model.Position{
		X: math.Max(0, math.Min(p.X, maxX)),
		Y: math.Max(l.TopMargin, math.Min(p.Y, maxY)),
	}
}

func (l Layout) max(bounds Size) (float64, float64) {
	return bounds.Width - l.Item.Width, bounds.Height - l.Item.Height
}

func (l Layout) inBounds(p model.Position, bounds Size) bool {
	maxX, maxY := l.max(bounds)
	return p.X >= 0 && p.X <= maxX && p.Y >= l.TopMargin && p.Y <= maxY
}

// FindNearestFree returns desired (clamped to bounds) when nothing overlaps
// it. Otherwise it samples rings of growing radius around desired and
// returns the closest free sample of the first ring that has any. This is
// a heuristic: a later ring never wins even when one of its samples would
// be nearer on a finer grid. When every ring up to MaxRadius is blocked the
// clamped position is returned with Degraded set.
func (l Layout) FindNearestFree(desired model.Position, siblings model.Items, excludeID string, bounds Size) Result {
	start := l.Clamp(desired, bounds)
	if !l.collides(start, siblings, excludeID) {
		return Result{Position: start}
	}

	step := l.RingStep
	if step <= 0 {
		step = l.Spacing + 5
	}
	angleStep := l.AngleStep
	if angleStep <= 0 {
		angleStep = 15
	}

	for radius := step; radius <= l.MaxRadius; radius += step {
		best, bestDist := model.Position{}, math.Inf(1)

		for angle := 0.0; angle < 360; angle += angleStep {
			rad := angle * math.Pi / 180
			candidate := model.Position{
				X: desired.X + radius*math.Cos(rad),
				Y: desired.Y + radius*math.Sin(rad),
			}
			if !l.inBounds(candidate, bounds) || l.collides(candidate, siblings, excludeID) {
				continue
			}
			if d := math.Hypot(candidate.X-desired.X, candidate.Y-desired.Y); d < bestDist {
				best, bestDist = candidate, d
			}
		}

		if !math.IsInf(bestDist, 1) {
			return Result{Position: best}
		}
	}

	return Result{Position: start, Degraded: true}
}

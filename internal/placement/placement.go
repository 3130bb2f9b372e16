package placement

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/deskmark/internal/geometry"
	"github.com/nikbrunner/deskmark/internal/model"
)

// Service assigns collision-free positions inside a sibling set.
type Service struct {
	layout geometry.Layout
	canvas geometry.Size
	random func() float64
	log    logrus.FieldLogger
}

// Params holds parameters for creating a new Service.
type Params struct {
	Layout geometry.Layout
	Canvas geometry.Size
	Random func() float64      // optional, uniform in [0, 1); defaults to math/rand
	Logger logrus.FieldLogger // optional
}

// New creates a Service.
func New(params Params) *Service {
	random := params.Random
	if random == nil {
		random = rand.Float64
	}

	var log logrus.FieldLogger = params.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}

	return &Service{
		layout: params.Layout,
		canvas: params.Canvas,
		random: random,
		log:    log,
	}
}

// Layout returns the geometry the service places with.
func (s *Service) Layout() geometry.Layout {
	return s.layout
}

// Canvas returns the visible canvas size.
func (s *Service) Canvas() geometry.Size {
	return s.canvas
}

// PlaceNew finds a spot for an item about to join siblings. A nil desired
// position picks a random point on the visible canvas first.
func (s *Service) PlaceNew(desired *model.Position, siblings model.Items) geometry.Result {
	want := s.RandomPosition()
	if desired != nil {
		want = *desired
	}
	return s.find(want, siblings, "")
}

// Relocate finds the free spot nearest desired for an item already in
// siblings. The item itself is ignored when testing overlaps.
func (s *Service) Relocate(id string, desired model.Position, siblings model.Items) geometry.Result {
	return s.find(desired, siblings, id)
}

// PlaceInFolder picks a spot for an item dropped into a folder, starting
// from a random point near the folder view's top-left corner.
func (s *Service) PlaceInFolder(id string, children model.Items) geometry.Result {
	want := model.Position{
		X: s.random()*200 + 50,
		Y: s.random()*200 + 50,
	}
	return s.find(want, children, id)
}

// RandomPosition returns a random point inside the visible canvas, clear
// of the edges.
func (s *Service) RandomPosition() model.Position {
	return model.Position{
		X: s.random()*math.Max(0, s.canvas.Width-200) + 50,
		Y: s.random()*math.Max(0, s.canvas.Height-300) + 100,
	}
}

// Arrange lays a sibling set out on a grid, row by row in order, and does
// the same for every folder's children. The grid may run past the bottom of
// the visible canvas; rows are never squeezed into overlap.
func (s *Service) Arrange(items model.Items) model.Items {
	cellW := s.layout.Item.Width + s.layout.Spacing
	cellH := s.layout.Item.Height + s.layout.Spacing
	cols := int(math.Max(1, math.Floor((s.canvas.Width-s.layout.Spacing)/cellW)))
	open := geometry.Size{Width: s.canvas.Width, Height: math.Inf(1)}

	out := make(model.Items, 0, len(items))
	for i, item := range items {
		desired := model.Position{
			X: s.layout.Spacing + float64(i%cols)*cellW,
			Y: s.layout.TopMargin + float64(i/cols)*cellH,
		}
		res := s.layout.FindNearestFree(desired, out, item.Base().ID, open)
		s.report(res, len(out))

		switch it := model.WithPosition(item, res.Position).(type) {
		case model.Folder:
			it.Children = s.Arrange(it.Children)
			out = append(out, it)
		case model.Bookmark:
			out = append(out, it)
		}
	}
	return out
}

func (s *Service) find(desired model.Position, siblings model.Items, excludeID string) geometry.Result {
	res := s.layout.FindNearestFree(desired, siblings, excludeID, s.canvas)
	s.report(res, len(siblings))
	return res
}

func (s *Service) report(res geometry.Result, siblings int) {
	if !res.Degraded {
		return
	}
	s.log.WithFields(logrus.Fields{
		"x":        res.Position.X,
		"y":        res.Position.Y,
		"siblings": siblings,
	}).Warn("no free position within search radius, placing with overlap")
}

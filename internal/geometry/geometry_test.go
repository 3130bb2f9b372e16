package geometry_test

import (
	"fmt"
	"testing"

	"github.com/nikbrunner/deskmark/internal/geometry"
	"github.com/nikbrunner/deskmark/internal/model"
	"gotest.tools/v3/assert"
)

var canvas = geometry.Size{Width: 1024, Height: 768}

func at(id string, x, y float64) model.Item {
	return model.Bookmark{
		Meta: model.Meta{ID: id, Name: id, Position: model.Position{X: x, Y: y}},
		URL:  "https://example.com",
	}
}

func TestOverlaps(t *testing.T) {
	l := geometry.DefaultLayout()

	tests := []struct {
		name string
		a, b model.Position
		want bool
	}{
		{"same spot", model.Position{X: 100, Y: 100}, model.Position{X: 100, Y: 100}, true},
		{"inside margin", model.Position{X: 100, Y: 100}, model.Position{X: 229, Y: 100}, true},
		{"exactly at margin", model.Position{X: 100, Y: 100}, model.Position{X: 230, Y: 100}, false},
		{"below", model.Position{X: 100, Y: 100}, model.Position{X: 100, Y: 230}, false},
		{"diagonal clear on one axis", model.Position{X: 100, Y: 100}, model.Position{X: 200, Y: 300}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, l.Overlaps(l.Box(tt.a), l.Box(tt.b)), tt.want)
			assert.Equal(t, l.Overlaps(l.Box(tt.b), l.Box(tt.a)), tt.want)
		})
	}
}

func TestFindOverlapping_ExcludesID(t *testing.T) {
	l := geometry.DefaultLayout()
	siblings := model.Items{at("a", 100, 100), at("b", 150, 150), at("c", 600, 600)}

	got := l.FindOverlapping(model.Position{X: 120, Y: 120}, siblings, "a")

	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Base().ID, "b")
}

func TestFindNearestFree_FastPath(t *testing.T) {
	l := geometry.DefaultLayout()
	siblings := model.Items{at("a", 600, 400)}

	res := l.FindNearestFree(model.Position{X: 100, Y: 100}, siblings, "", canvas)

	assert.Equal(t, res.Position, model.Position{X: 100, Y: 100})
	assert.Assert(t, !res.Degraded)
}

func TestFindNearestFree_ClampsIntoBounds(t *testing.T) {
	l := geometry.DefaultLayout()

	res := l.FindNearestFree(model.Position{X: -40, Y: 10}, nil, "", canvas)
	assert.Equal(t, res.Position, model.Position{X: 0, Y: 80})

	res = l.FindNearestFree(model.Position{X: 5000, Y: 5000}, nil, "", canvas)
	assert.Equal(t, res.Position, model.Position{X: 904, Y: 648})
}

func TestFindNearestFree_SecondItemAtSameSpot(t *testing.T) {
	l := geometry.DefaultLayout()
	first := l.FindNearestFree(model.Position{X: 100, Y: 100}, nil, "", canvas)
	siblings := model.Items{at("first", first.Position.X, first.Position.Y)}

	second := l.FindNearestFree(model.Position{X: 100, Y: 100}, siblings, "", canvas)

	assert.Assert(t, !second.Degraded)
	assert.Assert(t, second.Position != first.Position)
	assert.Equal(t, len(l.FindOverlapping(second.Position, siblings, "")), 0)
	// First free ring is r=135, first free angle is 0 degrees.
	assert.Equal(t, second.Position, model.Position{X: 235, Y: 100})
}

func TestFindNearestFree_IgnoresExcludedItem(t *testing.T) {
	l := geometry.DefaultLayout()
	siblings := model.Items{at("self", 300, 300)}

	res := l.FindNearestFree(model.Position{X: 310, Y: 300}, siblings, "self", canvas)

	assert.Equal(t, res.Position, model.Position{X: 310, Y: 300})
}

func TestFindNearestFree_DegradesWhenNoRoom(t *testing.T) {
	l := geometry.DefaultLayout()
	// Only (0, 80) fits a box on this canvas and it is taken.
	tiny := geometry.Size{Width: 120, Height: 200}
	siblings := model.Items{at("a", 0, 80)}

	res := l.FindNearestFree(model.Position{X: 0, Y: 80}, siblings, "", tiny)

	assert.Assert(t, res.Degraded)
	assert.Equal(t, res.Position, model.Position{X: 0, Y: 80})
}

func TestFindNearestFree_DegradesWhenRadiusExhausted(t *testing.T) {
	l := geometry.DefaultLayout()
	var siblings model.Items
	for x := 0.0; x <= 900; x += 130 {
		for y := 80.0; y <= 640; y += 130 {
			siblings = append(siblings, at(fmt.Sprintf("%v-%v", x, y), x, y))
		}
	}

	res := l.FindNearestFree(model.Position{X: 400, Y: 340}, siblings, "", canvas)

	assert.Assert(t, res.Degraded)
}

func TestFindNearestFree_SparseNeverDegrades(t *testing.T) {
	l := geometry.DefaultLayout()
	big := geometry.Size{Width: 4000, Height: 4000}

	var siblings model.Items
	for i := 0; i < 5; i++ {
		res := l.FindNearestFree(model.Position{X: 500, Y: 500}, siblings, "", big)
		assert.Assert(t, !res.Degraded, "item %d degraded", i)
		assert.Equal(t, len(l.FindOverlapping(res.Position, siblings, "")), 0, "item %d overlaps", i)
		siblings = append(siblings, at(fmt.Sprint(i), res.Position.X, res.Position.Y))
	}
}

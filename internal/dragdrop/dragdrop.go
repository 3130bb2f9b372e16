// Package dragdrop tracks a single drag gesture and turns its drop into a
// tree rewrite: a position change inside the current parent, or a move into
// a folder.
package dragdrop

import (
	"math"

	"github.com/nikbrunner/deskmark/internal/model"
	"github.com/nikbrunner/deskmark/internal/placement"
)

// DefaultThreshold is how far the pointer must travel before a gesture
// counts as an intentional move.
const DefaultThreshold = 10.0

// State is the phase of the gesture.
type State int

const (
	Idle State = iota
	Dragging
	HoveringFolder
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case HoveringFolder:
		return "hovering-folder"
	}
	return "unknown"
}

// OutcomeKind says what a drop did to the tree.
type OutcomeKind int

const (
	Ignored    OutcomeKind = iota // nothing to do: no gesture, self drop, bad target
	Cancelled                     // gesture abandoned
	Moved                         // position changed, parent kept
	Reparented                    // appended to a folder
)

// Outcome describes a finished gesture.
type Outcome struct {
	Kind     OutcomeKind
	ItemID   string
	ParentID string // folder now holding the item, "" for root
	Position model.Position
	Degraded bool // placement could not avoid overlap
}

// Reconciler is the gesture state machine. It is not safe for concurrent
// use; events are fed in order from a single loop.
type Reconciler struct {
	placer    *placement.Service
	threshold float64

	state       State
	dragged     model.Item
	start       model.Position
	target      string
	intentional bool
}

// New creates an idle Reconciler placing items with placer.
func New(placer *placement.Service) *Reconciler {
	return &Reconciler{placer: placer, threshold: DefaultThreshold}
}

// State returns the current phase.
func (r *Reconciler) State() State { return r.state }

// Dragged returns the item captured at gesture start.
func (r *Reconciler) Dragged() (model.Item, bool) {
	return r.dragged, r.state != Idle
}

// DropTarget returns the highlighted folder ID, or "".
func (r *Reconciler) DropTarget() string { return r.target }

// Intentional reports whether the pointer moved past the threshold while
// over a folder.
func (r *Reconciler) Intentional() bool { return r.intentional }

// Start begins a gesture on item, discarding any gesture in flight.
func (r *Reconciler) Start(item model.Item) {
	r.reset()
	r.state = Dragging
	r.dragged = item
	r.start = item.Base().Position
}

// Over reports the pointer at pointer above the sibling overID (or "" for
// empty canvas). A folder other than the dragged item becomes the drop
// target; anything else clears it.
func (r *Reconciler) Over(siblings model.Items, overID string, pointer model.Position) State {
	if r.state == Idle {
		return r.state
	}

	var over model.Item
	for _, s := range siblings {
		if s.Base().ID == overID {
			over = s
			break
		}
	}

	switch it := over.(type) {
	case model.Folder:
		if it.ID != r.dragged.Base().ID {
			r.state = HoveringFolder
			r.target = it.ID
			if math.Hypot(pointer.X-r.start.X, pointer.Y-r.start.Y) > r.threshold {
				r.intentional = true
			}
			return r.state
		}
	case model.Bookmark:
	}

	r.Leave()
	return r.state
}

// Leave reports the pointer leaving the hovered folder.
func (r *Reconciler) Leave() {
	if r.state == HoveringFolder {
		r.state = Dragging
	}
	r.target = ""
}

// Cancel abandons the gesture.
func (r *Reconciler) Cancel() Outcome {
	if r.state == Idle {
		return Outcome{Kind: Ignored}
	}
	out := Outcome{Kind: Cancelled, ItemID: r.dragged.Base().ID}
	r.reset()
	return out
}

// Drop ends the gesture with the pointer at pointer. If a folder is
// highlighted the item moves into it; otherwise pointer is taken as the
// item's new centre within its current parent. tree is the current tree,
// and the dragged item is looked up in it again rather than trusting the
// copy captured at Start.
func (r *Reconciler) Drop(tree model.Items, pointer model.Position) (model.Items, Outcome) {
	if r.state == Idle {
		return tree, Outcome{Kind: Ignored}
	}
	defer r.reset()

	if r.target != "" {
		return r.into(tree, r.target)
	}
	return r.move(tree, pointer)
}

// DropOn ends the gesture on an explicit target. Targets that are not
// folders, or are the dragged item itself, leave the tree alone.
func (r *Reconciler) DropOn(tree model.Items, targetID string) (model.Items, Outcome) {
	if r.state == Idle {
		return tree, Outcome{Kind: Ignored}
	}
	defer r.reset()
	return r.into(tree, targetID)
}

func (r *Reconciler) into(tree model.Items, targetID string) (model.Items, Outcome) {
	id := r.dragged.Base().ID
	ignored := Outcome{Kind: Ignored, ItemID: id}
	if targetID == id {
		return tree, ignored
	}

	target, ok := model.FindByID(tree, targetID)
	if !ok {
		return tree, ignored
	}

	switch folder := target.(type) {
	case model.Folder:
		res := r.placer.PlaceInFolder(id, folder.Children)
		next, ok := model.Reparent(tree, id, folder.ID, res.Position)
		if !ok {
			return tree, ignored
		}
		return next, Outcome{
			Kind:     Reparented,
			ItemID:   id,
			ParentID: folder.ID,
			Position: res.Position,
			Degraded: res.Degraded,
		}
	case model.Bookmark:
	}
	return tree, ignored
}

func (r *Reconciler) move(tree model.Items, pointer model.Position) (model.Items, Outcome) {
	id := r.dragged.Base().ID
	item, ok := model.FindByID(tree, id)
	if !ok {
		return tree, Outcome{Kind: Ignored, ItemID: id}
	}
	parentID, _ := model.ParentOf(tree, id)
	siblings, _ := model.ChildrenOf(tree, parentID)

	l := r.placer.Layout()
	centred := model.Position{
		X: pointer.X - l.Item.Width/2,
		Y: pointer.Y - l.Item.Height/2,
	}
	res := r.placer.Relocate(id, centred, siblings)

	next := model.ReplaceByID(tree, id, model.WithPosition(item, res.Position))
	return next, Outcome{
		Kind:     Moved,
		ItemID:   id,
		ParentID: parentID,
		Position: res.Position,
		Degraded: res.Degraded,
	}
}

func (r *Reconciler) reset() {
	r.state = Idle
	r.dragged = nil
	r.start = model.Position{}
	r.target = ""
	r.intentional = false
}

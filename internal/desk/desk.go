// Package desk is the operation surface a front end drives: it owns the
// item tree, the open folder, validation annotations and the drag gesture,
// and routes every edit through placement so siblings never overlap.
//
// A Desktop is not safe for concurrent use. Callers feed it one event at a
// time; only ValidateReachability blocks, and its results are merged by ID.
package desk

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nikbrunner/deskmark/internal/dragdrop"
	"github.com/nikbrunner/deskmark/internal/importer"
	"github.com/nikbrunner/deskmark/internal/model"
	"github.com/nikbrunner/deskmark/internal/placement"
	"github.com/nikbrunner/deskmark/internal/recent"
	"github.com/nikbrunner/deskmark/internal/search"
	"github.com/nikbrunner/deskmark/internal/validate"
)

// Validator checks every bookmark in a tree and reports results by ID.
type Validator interface {
	Check(ctx context.Context, items model.Items) (map[string]validate.Result, error)
}

// Desktop holds the tree and the navigation state around it.
type Desktop struct {
	items      model.Items
	path       []string // open folder IDs, root first
	placer     *placement.Service
	drag       *dragdrop.Reconciler
	recent     recent.Store
	validation map[string]validate.Result
	log        logrus.FieldLogger
	now        func() time.Time
}

// Params holds parameters for creating a new Desktop.
type Params struct {
	Items  model.Items
	Placer *placement.Service
	Recent recent.Store       // optional, defaults to an in-memory store
	Logger logrus.FieldLogger // optional
	Now    func() time.Time   // optional
}

// New creates a Desktop over params.Items.
func New(params Params) *Desktop {
	items := params.Items
	if items == nil {
		items = model.Items{}
	}
	store := params.Recent
	if store == nil {
		store = recent.NewMemory()
	}
	var log logrus.FieldLogger = params.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Desktop{
		items:      items,
		placer:     params.Placer,
		drag:       dragdrop.New(params.Placer),
		recent:     store,
		validation: make(map[string]validate.Result),
		log:        log,
		now:        now,
	}
}

// Items returns the whole tree.
func (d *Desktop) Items() model.Items {
	return d.items
}

// CurrentFolder returns the ID of the open folder, or "" at the root.
func (d *Desktop) CurrentFolder() string {
	d.prunePath()
	if len(d.path) == 0 {
		return ""
	}
	return d.path[len(d.path)-1]
}

// View returns the items of the open folder, read from the current tree.
func (d *Desktop) View() model.Items {
	children, _ := model.ChildrenOf(d.items, d.CurrentFolder())
	return children
}

// Path returns the open folders from the root down.
func (d *Desktop) Path() []model.Meta {
	id := d.CurrentFolder()
	if id == "" {
		return nil
	}
	return model.Path(d.items, id)
}

// Open makes folderID the open folder.
func (d *Desktop) Open(folderID string) error {
	item, ok := model.FindByID(d.items, folderID)
	if !ok {
		return fmt.Errorf("open %s: %w", folderID, model.ErrNotFound)
	}
	switch item.(type) {
	case model.Folder:
	case model.Bookmark:
		return fmt.Errorf("open %s: not a folder", folderID)
	}

	d.path = d.path[:0]
	for _, m := range model.Path(d.items, folderID) {
		d.path = append(d.path, m.ID)
	}
	return nil
}

// Back closes the open folder. It is a no-op at the root.
func (d *Desktop) Back() {
	d.prunePath()
	if len(d.path) > 0 {
		d.path = d.path[:len(d.path)-1]
	}
}

// Root closes every open folder.
func (d *Desktop) Root() {
	d.path = nil
}

// prunePath cuts the open path at the first folder no longer in the tree.
func (d *Desktop) prunePath() {
	parent := ""
	for i, id := range d.path {
		if p, ok := model.ParentOf(d.items, id); !ok || p != parent {
			d.path = d.path[:i]
			return
		}
		parent = id
	}
}

// Resolve finds an item by ID, or else by case-insensitive name in
// pre-order.
func (d *Desktop) Resolve(ref string) (model.Item, bool) {
	if item, ok := model.FindByID(d.items, ref); ok {
		return item, true
	}
	var found model.Item
	model.Walk(d.items, func(_ string, item model.Item) bool {
		if strings.EqualFold(item.Base().Name, ref) {
			found = item
			return false
		}
		return true
	})
	return found, found != nil
}

// ItemInput describes an item to create.
type ItemInput struct {
	Kind     model.Kind
	Name     string
	URL      string // bookmarks only
	Notes    string
	FolderID string          // "" is the root
	Position *model.Position // nil picks a random spot
}

// CreateItem validates in and adds a new item to the end of its folder at a
// free position.
func (d *Desktop) CreateItem(in ItemInput) (model.Item, error) {
	name, err := model.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	siblings, ok := model.ChildrenOf(d.items, in.FolderID)
	if !ok {
		return nil, fmt.Errorf("create in %s: %w", in.FolderID, model.ErrNotFound)
	}

	var item model.Item
	switch in.Kind {
	case model.KindBookmark:
		url, err := model.NormalizeURL(in.URL)
		if err != nil {
			return nil, err
		}
		item = model.NewBookmark(model.NewBookmarkParams{
			Name:  name,
			URL:   url,
			Notes: strings.TrimSpace(in.Notes),
		})
	case model.KindFolder:
		item = model.NewFolder(model.NewFolderParams{
			Name:  name,
			Notes: strings.TrimSpace(in.Notes),
		})
	default:
		return nil, &model.ValidationError{Field: "kind", Message: fmt.Sprintf("Unknown item type %q", in.Kind)}
	}

	res := d.placer.PlaceNew(in.Position, siblings)
	item = model.WithPosition(item, res.Position)
	d.items = appendTo(d.items, in.FolderID, item)

	d.log.WithFields(logrus.Fields{
		"id":     item.Base().ID,
		"kind":   item.Kind(),
		"folder": in.FolderID,
	}).Debug("created item")
	return item, nil
}

// appendTo adds item as the last child of folderID.
func appendTo(items model.Items, folderID string, item model.Item) model.Items {
	if folderID == "" {
		return append(slices.Clone(items), item)
	}
	target, _ := model.FindByID(items, folderID)
	folder := target.(model.Folder)
	folder.Children = append(slices.Clone(folder.Children), item)
	return model.ReplaceByID(items, folderID, folder)
}

// EditInput holds the new field values for an item. An empty URL keeps the
// bookmark's current URL.
type EditInput struct {
	Name  string
	URL   string
	Notes string
}

// RenameOrEdit replaces an item's name and notes, and a bookmark's URL. An
// unknown id leaves the tree unchanged.
func (d *Desktop) RenameOrEdit(id string, in EditInput) (model.Items, error) {
	item, ok := model.FindByID(d.items, id)
	if !ok {
		return d.items, nil
	}
	name, err := model.NormalizeName(in.Name)
	if err != nil {
		return d.items, err
	}

	m := item.Base()
	m.Name = name
	m.Notes = strings.TrimSpace(in.Notes)

	// Settle the item clear of its siblings, as close to where it was.
	parentID, _ := model.ParentOf(d.items, id)
	siblings, _ := model.ChildrenOf(d.items, parentID)
	m.Position = d.placer.Relocate(id, m.Position, siblings).Position

	var edited model.Item
	switch it := item.(type) {
	case model.Bookmark:
		if strings.TrimSpace(in.URL) != "" {
			url, err := model.NormalizeURL(in.URL)
			if err != nil {
				return d.items, err
			}
			if url != it.URL {
				delete(d.validation, id)
			}
			it.URL = url
		}
		it.Meta = m
		edited = it
	case model.Folder:
		it.Meta = m
		edited = it
	}

	d.items = model.ReplaceByID(d.items, id, edited)
	return d.items, nil
}

// DeleteItem removes an item and its whole subtree.
func (d *Desktop) DeleteItem(id string) model.Items {
	item, ok := model.FindByID(d.items, id)
	if !ok {
		return d.items
	}

	model.Walk(model.Items{item}, func(_ string, it model.Item) bool {
		delete(d.validation, it.Base().ID)
		return true
	})
	d.items = model.RemoveByID(d.items, id)
	d.prunePath()

	d.log.WithField("id", id).Debug("deleted item")
	return d.items
}

// MoveItem moves an item within its folder to the free spot nearest pos.
func (d *Desktop) MoveItem(id string, pos model.Position) model.Items {
	item, ok := model.FindByID(d.items, id)
	if !ok {
		return d.items
	}
	parentID, _ := model.ParentOf(d.items, id)
	siblings, _ := model.ChildrenOf(d.items, parentID)

	res := d.placer.Relocate(id, pos, siblings)
	d.items = model.ReplaceByID(d.items, id, model.WithPosition(item, res.Position))
	return d.items
}

// ReparentItem moves an item to the end of targetFolderID ("" is the root)
// at a fresh free position. Moves onto itself, into its own subtree, into
// its current folder or into a bookmark leave the tree unchanged.
func (d *Desktop) ReparentItem(id, targetFolderID string) model.Items {
	children, ok := model.ChildrenOf(d.items, targetFolderID)
	if !ok {
		return d.items
	}

	res := d.placer.PlaceInFolder(id, children)
	next, ok := model.Reparent(d.items, id, targetFolderID, res.Position)
	if !ok {
		return d.items
	}
	d.items = next
	d.prunePath()

	d.log.WithFields(logrus.Fields{"id": id, "folder": targetFolderID}).Debug("reparented item")
	return d.items
}

// Search runs query over scopeFolderID ("" is the root) and everything
// below it.
func (d *Desktop) Search(query, scopeFolderID string) []search.Match {
	items, ok := model.ChildrenOf(d.items, scopeFolderID)
	if !ok {
		return nil
	}
	return search.Search(query, items)
}

// ValidateReachability runs v over the tree and merges whatever it
// reported, even when it stopped early.
func (d *Desktop) ValidateReachability(ctx context.Context, v Validator) error {
	results, err := v.Check(ctx, d.items)
	d.MergeValidation(results)
	return err
}

// MergeValidation records results for items still in the tree. Results for
// unknown IDs are dropped.
func (d *Desktop) MergeValidation(results map[string]validate.Result) {
	for id, r := range results {
		if _, ok := model.FindByID(d.items, id); ok {
			d.validation[id] = r
		}
	}
}

// Validation returns the last result for id. ok is false when id has not
// been validated yet.
func (d *Desktop) Validation(id string) (validate.Result, bool) {
	r, ok := d.validation[id]
	return r, ok
}

// Visit records the bookmark id as opened and returns it.
func (d *Desktop) Visit(id string) (model.Bookmark, error) {
	item, ok := model.FindByID(d.items, id)
	if !ok {
		return model.Bookmark{}, fmt.Errorf("visit %s: %w", id, model.ErrNotFound)
	}

	switch it := item.(type) {
	case model.Bookmark:
		if err := d.recent.Put(it, d.now()); err != nil {
			return it, fmt.Errorf("record recent item: %w", err)
		}
		return it, nil
	case model.Folder:
	}
	return model.Bookmark{}, fmt.Errorf("visit %s: not a bookmark", id)
}

// Recent returns the recently opened bookmarks, newest first.
func (d *Desktop) Recent() ([]recent.Entry, error) {
	return d.recent.Get()
}

// Import replaces the whole tree with doc. A malformed document is rejected
// and the tree is left as it was.
func (d *Desktop) Import(doc []byte) error {
	items, err := model.ParseDocument(doc)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	d.drag.Cancel()
	d.items = items
	d.path = nil
	clear(d.validation)

	d.log.WithField("items", model.Count(items)).Debug("imported document")
	return nil
}

// Export serializes the whole tree.
func (d *Desktop) Export() ([]byte, error) {
	return model.EncodeDocument(d.items)
}

// ImportHTML merges a Netscape bookmark file into the root. Imported
// folders are laid out on a grid; each top-level item is then placed clear
// of what is already on the root. It returns the number of items added.
func (d *Desktop) ImportHTML(r io.Reader) (int, error) {
	imported, err := importer.ParseHTML(r)
	if err != nil {
		return 0, fmt.Errorf("import html: %w", err)
	}

	imported = d.placer.Arrange(imported)
	next := slices.Clone(d.items)
	for _, item := range imported {
		pos := item.Base().Position
		res := d.placer.PlaceNew(&pos, next)
		next = append(next, model.WithPosition(item, res.Position))
	}
	if err := model.Check(next); err != nil {
		return 0, fmt.Errorf("import html: %w", err)
	}

	d.items = next
	return model.Count(imported), nil
}

// Drag returns the gesture state machine.
func (d *Desktop) Drag() *dragdrop.Reconciler {
	return d.drag
}

// StartDrag begins dragging id.
func (d *Desktop) StartDrag(id string) error {
	item, ok := model.FindByID(d.items, id)
	if !ok {
		return fmt.Errorf("drag %s: %w", id, model.ErrNotFound)
	}
	d.drag.Start(item)
	return nil
}

// Hover reports the pointer above overID ("" for empty canvas) in the open
// folder.
func (d *Desktop) Hover(overID string, pointer model.Position) dragdrop.State {
	return d.drag.Over(d.View(), overID, pointer)
}

// LeaveHover reports the pointer leaving the hovered folder.
func (d *Desktop) LeaveHover() {
	d.drag.Leave()
}

// Drop ends the gesture at pointer.
func (d *Desktop) Drop(pointer model.Position) dragdrop.Outcome {
	next, out := d.drag.Drop(d.items, pointer)
	d.items = next
	d.prunePath()
	return out
}

// DropOnFolder ends the gesture on targetID.
func (d *Desktop) DropOnFolder(targetID string) dragdrop.Outcome {
	next, out := d.drag.DropOn(d.items, targetID)
	d.items = next
	d.prunePath()
	return out
}

// CancelDrag abandons the gesture.
func (d *Desktop) CancelDrag() dragdrop.Outcome {
	return d.drag.Cancel()
}

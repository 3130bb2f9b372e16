package desk_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/deskmark/internal/desk"
	"github.com/nikbrunner/deskmark/internal/dragdrop"
	"github.com/nikbrunner/deskmark/internal/geometry"
	"github.com/nikbrunner/deskmark/internal/model"
	"github.com/nikbrunner/deskmark/internal/placement"
	"github.com/nikbrunner/deskmark/internal/search"
	"github.com/nikbrunner/deskmark/internal/validate"
)

var canvas = geometry.Size{Width: 1024, Height: 768}

func newDesktop(t *testing.T, items model.Items) (*desk.Desktop, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	p := placement.New(placement.Params{
		Layout: geometry.DefaultLayout(),
		Canvas: canvas,
		Random: func() float64 { return 0.5 },
		Logger: logger,
	})
	return desk.New(desk.Params{Items: items, Placer: p, Logger: logger}), hook
}

func mustCreate(t *testing.T, d *desk.Desktop, in desk.ItemInput) model.Item {
	t.Helper()
	item, err := d.CreateItem(in)
	assert.NilError(t, err)
	return item
}

func folderIn(parent, name string) desk.ItemInput {
	return desk.ItemInput{Kind: model.KindFolder, Name: name, FolderID: parent}
}

func bookmarkIn(parent, name, url string) desk.ItemInput {
	return desk.ItemInput{Kind: model.KindBookmark, Name: name, URL: url, FolderID: parent}
}

// assertInvariants checks unique IDs, that no item contains itself, and,
// unless placement degraded, that no two siblings overlap.
func assertInvariants(t *testing.T, items model.Items, checkOverlap bool) {
	t.Helper()
	seen := map[string]bool{}
	model.Walk(items, func(_ string, item model.Item) bool {
		id := item.Base().ID
		assert.Assert(t, !seen[id], "duplicate id %s", id)
		seen[id] = true
		if f, ok := item.(model.Folder); ok {
			_, cyclic := model.FindByID(f.Children, id)
			assert.Assert(t, !cyclic, "%s contains itself", id)
		}
		return true
	})
	if !checkOverlap {
		return
	}

	l := geometry.DefaultLayout()
	check := func(siblings model.Items) {
		for i := range siblings {
			for j := i + 1; j < len(siblings); j++ {
				a, b := siblings[i].Base(), siblings[j].Base()
				assert.Assert(t, !l.Overlaps(l.Box(a.Position), l.Box(b.Position)),
					"%s at %v overlaps %s at %v", a.ID, a.Position, b.ID, b.Position)
			}
		}
	}
	check(items)
	model.Walk(items, func(_ string, item model.Item) bool {
		if f, ok := item.(model.Folder); ok {
			check(f.Children)
		}
		return true
	})
}

func TestCreate_WorkDocsScenario(t *testing.T) {
	d, _ := newDesktop(t, nil)

	work := mustCreate(t, d, folderIn("", "Work"))
	docs := mustCreate(t, d, bookmarkIn(work.Base().ID, "Docs", "example.com"))

	bm, ok := docs.(model.Bookmark)
	assert.Assert(t, ok)
	assert.Equal(t, bm.URL, "https://example.com")

	parent, ok := model.ParentOf(d.Items(), bm.ID)
	assert.Assert(t, ok)
	assert.Equal(t, parent, work.Base().ID)

	results := d.Search("doc", "")
	assert.Equal(t, len(results), 1)
	assert.Equal(t, results[0].Item.Base().ID, bm.ID)
	name, ok := results[0].Matched(search.FieldName)
	assert.Assert(t, ok)
	assert.DeepEqual(t, name, []string{"doc"})
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	d, _ := newDesktop(t, nil)
	mustCreate(t, d, folderIn("", "Work"))
	before := d.Items()

	tests := []struct {
		name  string
		in    desk.ItemInput
		field string
	}{
		{"blank name", bookmarkIn("", "  ", "example.com"), "name"},
		{"missing url", bookmarkIn("", "Docs", ""), "url"},
		{"bad url", bookmarkIn("", "Docs", "http://"), "url"},
		{"unknown kind", desk.ItemInput{Kind: "widget", Name: "W"}, "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.CreateItem(tt.in)
			var verr *model.ValidationError
			assert.Assert(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, verr.Field, tt.field)
			assert.DeepEqual(t, d.Items(), before)
		})
	}

	_, err := d.CreateItem(bookmarkIn("nope", "Docs", "example.com"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreate_SamePositionDoesNotOverlap(t *testing.T) {
	d, hook := newDesktop(t, nil)
	pos := model.Position{X: 100, Y: 100}

	first := mustCreate(t, d, desk.ItemInput{Kind: model.KindFolder, Name: "A", Position: &pos})
	second := mustCreate(t, d, desk.ItemInput{Kind: model.KindFolder, Name: "B", Position: &pos})

	assert.Equal(t, first.Base().Position, pos)
	assert.Assert(t, second.Base().Position != pos)
	assertInvariants(t, d.Items(), len(hook.Entries) == 0)
}

func TestRenameOrEdit(t *testing.T) {
	d, _ := newDesktop(t, nil)
	b := mustCreate(t, d, bookmarkIn("", "Docs", "example.com"))
	id := b.Base().ID
	d.MergeValidation(map[string]validate.Result{id: {Status: validate.Invalid}})

	items, err := d.RenameOrEdit(id, desk.EditInput{Name: " Go Docs ", Notes: "reference"})
	assert.NilError(t, err)
	got, _ := model.FindByID(items, id)
	assert.Equal(t, got.Base().Name, "Go Docs")
	assert.Equal(t, got.Base().Notes, "reference")
	assert.Equal(t, got.(model.Bookmark).URL, "https://example.com", "empty url keeps the current one")
	_, validated := d.Validation(id)
	assert.Assert(t, validated)

	_, err = d.RenameOrEdit(id, desk.EditInput{Name: "Go Docs", URL: "go.dev/doc"})
	assert.NilError(t, err)
	got, _ = model.FindByID(d.Items(), id)
	assert.Equal(t, got.(model.Bookmark).URL, "https://go.dev/doc")
	_, validated = d.Validation(id)
	assert.Assert(t, !validated, "a new url drops the old validation result")

	_, err = d.RenameOrEdit(id, desk.EditInput{Name: ""})
	assert.ErrorContains(t, err, "Name is required")

	before := d.Items()
	items, err = d.RenameOrEdit("missing", desk.EditInput{Name: "X"})
	assert.NilError(t, err)
	assert.DeepEqual(t, items, before)
}

func TestRenameOrEdit_SettlesOverlap(t *testing.T) {
	d, _ := newDesktop(t, nil)
	doc, err := model.EncodeDocument(model.Items{
		model.Bookmark{Meta: model.Meta{ID: "a", Name: "A", Position: model.Position{X: 300, Y: 300}}, URL: "https://a.dev"},
		model.Bookmark{Meta: model.Meta{ID: "b", Name: "B", Position: model.Position{X: 310, Y: 310}}, URL: "https://b.dev"},
	})
	assert.NilError(t, err)
	assert.NilError(t, d.Import(doc))

	items, err := d.RenameOrEdit("b", desk.EditInput{Name: "B2"})
	assert.NilError(t, err)

	a, _ := model.FindByID(items, "a")
	b, _ := model.FindByID(items, "b")
	assert.Equal(t, a.Base().Position, model.Position{X: 300, Y: 300}, "siblings stay put")
	assert.Equal(t, b.Base().Name, "B2")
	layout := geometry.DefaultLayout()
	assert.Assert(t, !layout.Overlaps(layout.Box(a.Base().Position), layout.Box(b.Base().Position)),
		"a=%v b=%v", a.Base().Position, b.Base().Position)
}

func TestDelete_RemovesSubtree(t *testing.T) {
	d, _ := newDesktop(t, nil)
	work := mustCreate(t, d, folderIn("", "Work"))
	inner := mustCreate(t, d, folderIn(work.Base().ID, "Inner"))
	b1 := mustCreate(t, d, bookmarkIn(work.Base().ID, "One", "one.dev"))
	mustCreate(t, d, bookmarkIn(inner.Base().ID, "Two", "two.dev"))
	mustCreate(t, d, bookmarkIn("", "Keep", "keep.dev"))
	d.MergeValidation(map[string]validate.Result{b1.Base().ID: {Status: validate.Valid}})
	assert.NilError(t, d.Open(inner.Base().ID))

	before := model.Count(d.Items())
	items := d.DeleteItem(work.Base().ID)

	// Work plus its 3 descendants.
	assert.Equal(t, model.Count(items), before-4)
	_, validated := d.Validation(b1.Base().ID)
	assert.Assert(t, !validated)
	assert.Equal(t, d.CurrentFolder(), "")
	assert.Equal(t, len(d.View()), 1)

	assert.DeepEqual(t, d.DeleteItem("missing"), items)
}

func TestMoveItem(t *testing.T) {
	d, hook := newDesktop(t, nil)
	a := mustCreate(t, d, folderIn("", "A"))
	pos := model.Position{X: 600, Y: 300}
	b := mustCreate(t, d, desk.ItemInput{Kind: model.KindFolder, Name: "B", Position: &pos})

	items := d.MoveItem(a.Base().ID, model.Position{X: 200, Y: 500})
	got, _ := model.FindByID(items, a.Base().ID)
	assert.Equal(t, got.Base().Position, model.Position{X: 200, Y: 500})

	items = d.MoveItem(a.Base().ID, b.Base().Position)
	got, _ = model.FindByID(items, a.Base().ID)
	assert.Assert(t, got.Base().Position != b.Base().Position)
	assertInvariants(t, items, len(hook.Entries) == 0)
}

func TestReparent_PreservesCount(t *testing.T) {
	d, hook := newDesktop(t, nil)
	src := mustCreate(t, d, folderIn("", "Source"))
	dst := mustCreate(t, d, folderIn("", "Target"))
	b := mustCreate(t, d, bookmarkIn(src.Base().ID, "Moved", "moved.dev"))
	mustCreate(t, d, bookmarkIn(src.Base().ID, "Stays", "stays.dev"))

	total := model.Count(d.Items())
	srcBefore, _ := model.ChildrenOf(d.Items(), src.Base().ID)
	dstBefore, _ := model.ChildrenOf(d.Items(), dst.Base().ID)

	items := d.ReparentItem(b.Base().ID, dst.Base().ID)

	srcAfter, _ := model.ChildrenOf(items, src.Base().ID)
	dstAfter, _ := model.ChildrenOf(items, dst.Base().ID)
	assert.Equal(t, len(srcAfter), len(srcBefore)-1)
	assert.Equal(t, len(dstAfter), len(dstBefore)+1)
	assert.Equal(t, model.Count(items), total)
	assertInvariants(t, items, len(hook.Entries) == 0)
}

func TestReparent_RefusesCycles(t *testing.T) {
	d, _ := newDesktop(t, nil)
	outer := mustCreate(t, d, folderIn("", "Outer"))
	inner := mustCreate(t, d, folderIn(outer.Base().ID, "Inner"))
	b := mustCreate(t, d, bookmarkIn("", "Leaf", "leaf.dev"))
	before := d.Items()

	assert.DeepEqual(t, d.ReparentItem(outer.Base().ID, inner.Base().ID), before)
	assert.DeepEqual(t, d.ReparentItem(outer.Base().ID, outer.Base().ID), before)
	assert.DeepEqual(t, d.ReparentItem(outer.Base().ID, b.Base().ID), before)
	assert.DeepEqual(t, d.ReparentItem(outer.Base().ID, ""), before)
}

func TestNavigation(t *testing.T) {
	d, _ := newDesktop(t, nil)
	work := mustCreate(t, d, folderIn("", "Work"))
	inner := mustCreate(t, d, folderIn(work.Base().ID, "Inner"))
	b := mustCreate(t, d, bookmarkIn(inner.Base().ID, "Docs", "docs.dev"))

	assert.NilError(t, d.Open(inner.Base().ID))
	assert.Equal(t, d.CurrentFolder(), inner.Base().ID)
	assert.Equal(t, len(d.Path()), 2)
	assert.Equal(t, d.Path()[0].Name, "Work")
	assert.Equal(t, len(d.View()), 1)

	// Creating elsewhere is reflected immediately in the resolved view.
	mustCreate(t, d, bookmarkIn(inner.Base().ID, "More", "more.dev"))
	assert.Equal(t, len(d.View()), 2)

	d.Back()
	assert.Equal(t, d.CurrentFolder(), work.Base().ID)
	d.Root()
	assert.Equal(t, d.CurrentFolder(), "")
	d.Back()
	assert.Equal(t, d.CurrentFolder(), "")

	assert.ErrorIs(t, d.Open("missing"), model.ErrNotFound)
	assert.ErrorContains(t, d.Open(b.Base().ID), "not a folder")

	// Moving an open folder elsewhere closes it.
	assert.NilError(t, d.Open(inner.Base().ID))
	d.ReparentItem(inner.Base().ID, "")
	assert.Equal(t, d.CurrentFolder(), work.Base().ID)
}

func TestResolve(t *testing.T) {
	d, _ := newDesktop(t, nil)
	work := mustCreate(t, d, folderIn("", "Work"))
	b := mustCreate(t, d, bookmarkIn(work.Base().ID, "Docs", "docs.dev"))

	got, ok := d.Resolve(b.Base().ID)
	assert.Assert(t, ok)
	assert.Equal(t, got.Base().ID, b.Base().ID)

	got, ok = d.Resolve("docs")
	assert.Assert(t, ok)
	assert.Equal(t, got.Base().ID, b.Base().ID)

	_, ok = d.Resolve("nothing")
	assert.Assert(t, !ok)
}

func TestSearch_Scoped(t *testing.T) {
	d, _ := newDesktop(t, nil)
	work := mustCreate(t, d, folderIn("", "Work"))
	mustCreate(t, d, bookmarkIn(work.Base().ID, "Go docs", "go.dev"))
	mustCreate(t, d, bookmarkIn("", "Rust docs", "rust-lang.org"))

	assert.Equal(t, len(d.Search("docs", "")), 2)
	assert.Equal(t, len(d.Search("docs", work.Base().ID)), 1)
	assert.Equal(t, len(d.Search("docs", "missing")), 0)

	first := d.Search("docs go", "")
	second := d.Search("docs go", "")
	assert.DeepEqual(t, first, second)
}

type fakeValidator struct {
	results map[string]validate.Result
	err     error
}

func (f fakeValidator) Check(context.Context, model.Items) (map[string]validate.Result, error) {
	return f.results, f.err
}

func TestValidateReachability(t *testing.T) {
	d, _ := newDesktop(t, nil)
	a := mustCreate(t, d, bookmarkIn("", "A", "a.dev"))
	b := mustCreate(t, d, bookmarkIn("", "B", "b.dev"))

	_, ok := d.Validation(a.Base().ID)
	assert.Assert(t, !ok, "absent until validated")

	v := fakeValidator{
		results: map[string]validate.Result{
			a.Base().ID: {Status: validate.Valid, StatusCode: 200},
			"ghost":     {Status: validate.Invalid},
		},
		err: context.DeadlineExceeded,
	}
	err := d.ValidateReachability(context.Background(), v)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r, ok := d.Validation(a.Base().ID)
	assert.Assert(t, ok)
	assert.Assert(t, r.Valid())
	_, ok = d.Validation(b.Base().ID)
	assert.Assert(t, !ok)
	_, ok = d.Validation("ghost")
	assert.Assert(t, !ok)
}

func TestVisitAndRecent(t *testing.T) {
	d, _ := newDesktop(t, nil)
	a := mustCreate(t, d, bookmarkIn("", "A", "a.dev"))
	b := mustCreate(t, d, bookmarkIn("", "B", "b.dev"))
	f := mustCreate(t, d, folderIn("", "F"))

	for _, id := range []string{a.Base().ID, b.Base().ID, a.Base().ID} {
		_, err := d.Visit(id)
		assert.NilError(t, err)
	}
	_, err := d.Visit(f.Base().ID)
	assert.ErrorContains(t, err, "not a bookmark")
	_, err = d.Visit("missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	entries, err := d.Recent()
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 2)
	assert.Equal(t, entries[0].ID, a.Base().ID)
	assert.Equal(t, entries[1].ID, b.Base().ID)
}

func TestImportExport(t *testing.T) {
	d, _ := newDesktop(t, nil)
	work := mustCreate(t, d, folderIn("", "Work"))
	mustCreate(t, d, bookmarkIn(work.Base().ID, "Docs", "example.com"))

	doc, err := d.Export()
	assert.NilError(t, err)

	other, _ := newDesktop(t, nil)
	assert.NilError(t, other.Import(doc))
	assert.DeepEqual(t, other.Items(), d.Items())

	before := d.Items()
	for _, bad := range []string{
		`{"not": "an array"}`,
		`[{"id":"a","type":"widget","name":"A","position":{"x":0,"y":0}}]`,
		`[{"id":"a","type":"bookmark","name":"A","url":"https://a.dev","position":{"x":0,"y":0}},` +
			`{"id":"a","type":"folder","name":"B","position":{"x":0,"y":0},"children":[]}]`,
	} {
		err := d.Import([]byte(bad))
		assert.ErrorIs(t, err, model.ErrInvalidDocument)
		assert.DeepEqual(t, d.Items(), before)
	}
}

func TestImportHTML(t *testing.T) {
	d, hook := newDesktop(t, nil)
	pos := model.Position{X: 10, Y: 80}
	mustCreate(t, d, desk.ItemInput{Kind: model.KindFolder, Name: "Existing", Position: &pos})

	html := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><A HREF="https://go.dev">Go</A>
        <DT><A HREF="https://rust-lang.org">Rust</A>
    </DL><p>
    <DT><A HREF="https://news.ycombinator.com">HN</A>
</DL><p>`

	n, err := d.ImportHTML(strings.NewReader(html))
	assert.NilError(t, err)
	assert.Equal(t, n, 4)
	assert.Equal(t, model.Count(d.Items()), 5)
	assertInvariants(t, d.Items(), len(hook.Entries) == 0)
}

func TestDrag_OntoFolder(t *testing.T) {
	d, hook := newDesktop(t, nil)
	aPos := model.Position{X: 100, Y: 100}
	bPos := model.Position{X: 500, Y: 100}
	a := mustCreate(t, d, desk.ItemInput{Kind: model.KindBookmark, Name: "A", URL: "a.dev", Position: &aPos})
	b := mustCreate(t, d, desk.ItemInput{Kind: model.KindFolder, Name: "B", Position: &bPos})

	assert.NilError(t, d.StartDrag(a.Base().ID))
	assert.Equal(t, d.Hover(b.Base().ID, model.Position{X: 560, Y: 160}), dragdrop.HoveringFolder)
	out := d.Drop(model.Position{X: 560, Y: 160})

	assert.Equal(t, out.Kind, dragdrop.Reparented)
	parent, _ := model.ParentOf(d.Items(), a.Base().ID)
	assert.Equal(t, parent, b.Base().ID)
	assert.Assert(t, is.Len(d.View(), 1))
	assertInvariants(t, d.Items(), len(hook.Entries) == 0)
}

func TestDrag_OntoSelf(t *testing.T) {
	d, _ := newDesktop(t, nil)
	a := mustCreate(t, d, folderIn("", "A"))
	before := d.Items()

	assert.NilError(t, d.StartDrag(a.Base().ID))
	out := d.DropOnFolder(a.Base().ID)

	assert.Equal(t, out.Kind, dragdrop.Ignored)
	assert.DeepEqual(t, d.Items(), before)
	assert.Equal(t, d.Drag().State(), dragdrop.Idle)
	assert.ErrorIs(t, d.StartDrag("missing"), model.ErrNotFound)
	assert.Equal(t, d.CancelDrag().Kind, dragdrop.Ignored)
}

// TestRandomOperations drives a mixed sequence of edits and checks the tree
// invariants after each one.
func TestRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	logger, hook := logtest.NewNullLogger()
	p := placement.New(placement.Params{
		Layout: geometry.DefaultLayout(),
		Canvas: geometry.Size{Width: 2400, Height: 1600},
		Random: rng.Float64,
		Logger: logger,
	})
	d := desk.New(desk.Params{Placer: p, Logger: logger, Now: func() time.Time { return time.Unix(0, 0) }})

	pick := func() (string, bool) {
		var ids []string
		model.Walk(d.Items(), func(_ string, item model.Item) bool {
			ids = append(ids, item.Base().ID)
			return true
		})
		if len(ids) == 0 {
			return "", false
		}
		return ids[rng.Intn(len(ids))], true
	}
	pickFolder := func() string {
		var ids []string
		model.Walk(d.Items(), func(_ string, item model.Item) bool {
			if _, ok := item.(model.Folder); ok {
				ids = append(ids, item.Base().ID)
			}
			return true
		})
		if len(ids) == 0 || rng.Intn(3) == 0 {
			return ""
		}
		return ids[rng.Intn(len(ids))]
	}

	for step := 0; step < 120; step++ {
		switch op := rng.Intn(6); op {
		case 0, 1:
			kind := model.KindBookmark
			if rng.Intn(2) == 0 {
				kind = model.KindFolder
			}
			_, err := d.CreateItem(desk.ItemInput{
				Kind:     kind,
				Name:     fmt.Sprint("item ", step),
				URL:      fmt.Sprintf("site%d.dev", step),
				FolderID: pickFolder(),
			})
			assert.NilError(t, err)
		case 2:
			if id, ok := pick(); ok {
				d.MoveItem(id, model.Position{X: rng.Float64() * 2000, Y: rng.Float64() * 1400})
			}
		case 3:
			if id, ok := pick(); ok {
				d.ReparentItem(id, pickFolder())
			}
		case 4:
			if id, ok := pick(); ok && rng.Intn(3) == 0 {
				before := model.Count(d.Items())
				item, _ := model.FindByID(d.Items(), id)
				removed := model.Count(model.Items{item})
				assert.Equal(t, model.Count(d.DeleteItem(id)), before-removed)
			}
		case 5:
			if id, ok := pick(); ok {
				before := model.Count(d.Items())
				assert.NilError(t, d.StartDrag(id))
				d.DropOnFolder(pickFolder())
				assert.Equal(t, model.Count(d.Items()), before)
			}
		}
		assertInvariants(t, d.Items(), len(hook.Entries) == 0)
	}
}

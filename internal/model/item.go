package model

import (
	"encoding/json"
	"fmt"
)

// Kind names an item variant. It is also the "type" tag in the JSON document.
type Kind string

const (
	KindBookmark Kind = "bookmark"
	KindFolder   Kind = "folder"
)

// Position is a point on the canvas, anchoring an item's top-left corner.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Meta holds the fields every item carries.
type Meta struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Notes    string   `json:"notes,omitempty"`
	Position Position `json:"position"`
}

// Item is either a Bookmark or a Folder. The set is closed: withMeta is
// unexported, so every type switch over Item only has two cases to cover.
type Item interface {
	Base() Meta
	Kind() Kind
	withMeta(Meta) Item
}

// Items is an ordered sibling set. The root-level Items is the whole tree.
type Items []Item

// Bookmark is a leaf item pointing at a URL.
type Bookmark struct {
	Meta
	URL string `json:"url"`
}

func (b Bookmark) Base() Meta { return b.Meta }
func (b Bookmark) Kind() Kind { return KindBookmark }

func (b Bookmark) withMeta(m Meta) Item {
	b.Meta = m
	return b
}

// MarshalJSON writes the bookmark with its "type" tag.
func (b Bookmark) MarshalJSON() ([]byte, error) {
	type plain Bookmark
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindBookmark, plain(b)})
}

// Folder owns an ordered list of children.
type Folder struct {
	Meta
	Children Items `json:"children"`
}

func (f Folder) Base() Meta { return f.Meta }
func (f Folder) Kind() Kind { return KindFolder }

func (f Folder) withMeta(m Meta) Item {
	f.Meta = m
	return f
}

// MarshalJSON writes the folder with its "type" tag and a non-null children array.
func (f Folder) MarshalJSON() ([]byte, error) {
	type plain Folder
	if f.Children == nil {
		f.Children = Items{}
	}
	return json.Marshal(struct {
		Type Kind `json:"type"`
		plain
	}{KindFolder, plain(f)})
}

// UnmarshalJSON decodes a sibling set, dispatching on each element's "type".
func (items *Items) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Items, 0, len(raw))
	for i, r := range raw {
		var head struct {
			Type Kind `json:"type"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return err
		}

		switch head.Type {
		case KindBookmark:
			var b Bookmark
			if err := json.Unmarshal(r, &b); err != nil {
				return err
			}
			out = append(out, b)
		case KindFolder:
			var f Folder
			if err := json.Unmarshal(r, &f); err != nil {
				return err
			}
			if f.Children == nil {
				f.Children = Items{}
			}
			out = append(out, f)
		default:
			return fmt.Errorf("%w: item %d has unknown type %q", ErrInvalidDocument, i, head.Type)
		}
	}

	*items = out
	return nil
}

// WithPosition returns a copy of item moved to pos.
func WithPosition(item Item, pos Position) Item {
	m := item.Base()
	m.Position = pos
	return item.withMeta(m)
}

// WithMeta returns a copy of item carrying m. Kind-specific fields are kept.
func WithMeta(item Item, m Meta) Item {
	return item.withMeta(m)
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Name     string
	URL      string
	Notes    string
	Position Position
}

// NewBookmark creates a Bookmark with a generated ID.
func NewBookmark(params NewBookmarkParams) Bookmark {
	return Bookmark{
		Meta: Meta{
			ID:       NewID(),
			Name:     params.Name,
			Notes:    params.Notes,
			Position: params.Position,
		},
		URL: params.URL,
	}
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Name     string
	Notes    string
	Position Position
}

// NewFolder creates an empty Folder with a generated ID.
func NewFolder(params NewFolderParams) Folder {
	return Folder{
		Meta: Meta{
			ID:       NewID(),
			Name:     params.Name,
			Notes:    params.Notes,
			Position: params.Position,
		},
		Children: Items{},
	}
}

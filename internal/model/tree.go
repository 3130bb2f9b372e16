package model

import "slices"

// FindByID searches the whole tree depth-first.
func FindByID(items Items, id string) (Item, bool) {
	for _, item := range items {
		if item.Base().ID == id {
			return item, true
		}
		switch it := item.(type) {
		case Folder:
			if found, ok := FindByID(it.Children, id); ok {
				return found, true
			}
		case Bookmark:
		}
	}
	return nil, false
}

// ReplaceByID returns a tree with the item identified by id swapped for
// replacement. Only the ancestor chain is rebuilt; everything else is shared
// with the input. If id is absent the input is returned unchanged.
func ReplaceByID(items Items, id string, replacement Item) Items {
	out, _ := replaceByID(items, id, replacement)
	return out
}

func replaceByID(items Items, id string, replacement Item) (Items, bool) {
	for i, item := range items {
		if item.Base().ID == id {
			out := slices.Clone(items)
			out[i] = replacement
			return out, true
		}
		switch it := item.(type) {
		case Folder:
			if children, ok := replaceByID(it.Children, id, replacement); ok {
				it.Children = children
				out := slices.Clone(items)
				out[i] = it
				return out, true
			}
		case Bookmark:
		}
	}
	return items, false
}

// RemoveByID returns a tree without the item identified by id. Removing a
// folder drops its whole subtree.
func RemoveByID(items Items, id string) Items {
	out, _ := removeByID(items, id)
	return out
}

func removeByID(items Items, id string) (Items, bool) {
	for i, item := range items {
		if item.Base().ID == id {
			out := make(Items, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
		switch it := item.(type) {
		case Folder:
			if children, ok := removeByID(it.Children, id); ok {
				it.Children = children
				out := slices.Clone(items)
				out[i] = it
				return out, true
			}
		case Bookmark:
		}
	}
	return items, false
}

// ChildrenOf returns the sibling set owned by folderID. An empty folderID
// means the root.
func ChildrenOf(items Items, folderID string) (Items, bool) {
	if folderID == "" {
		return items, true
	}
	item, ok := FindByID(items, folderID)
	if !ok {
		return nil, false
	}
	switch it := item.(type) {
	case Folder:
		return it.Children, true
	case Bookmark:
	}
	return nil, false
}

// ParentOf returns the ID of the folder holding id, or "" for root items.
func ParentOf(items Items, id string) (string, bool) {
	return parentOf(items, "", id)
}

func parentOf(items Items, parentID, id string) (string, bool) {
	for _, item := range items {
		if item.Base().ID == id {
			return parentID, true
		}
		switch it := item.(type) {
		case Folder:
			if p, ok := parentOf(it.Children, it.ID, id); ok {
				return p, true
			}
		case Bookmark:
		}
	}
	return "", false
}

// Path returns the folders leading from the root down to id, inclusive of
// id itself. It is nil when id is absent.
func Path(items Items, id string) []Meta {
	for _, item := range items {
		if item.Base().ID == id {
			return []Meta{item.Base()}
		}
		switch it := item.(type) {
		case Folder:
			if rest := Path(it.Children, id); rest != nil {
				return append([]Meta{it.Meta}, rest...)
			}
		case Bookmark:
		}
	}
	return nil
}

// Contains reports whether id lives anywhere inside the subtree of ancestorID.
func Contains(items Items, ancestorID, id string) bool {
	children, ok := ChildrenOf(items, ancestorID)
	if !ok {
		return false
	}
	_, found := FindByID(children, id)
	return found
}

// Reparent moves id to the end of targetFolderID's children at pos. An empty
// targetFolderID means the root. It refuses, returning the input unchanged
// and false, when id is absent, already a child of the target, the target
// itself, or an ancestor of the target, or when the target is not a folder.
func Reparent(items Items, id, targetFolderID string, pos Position) (Items, bool) {
	if id == targetFolderID {
		return items, false
	}
	item, ok := FindByID(items, id)
	if !ok {
		return items, false
	}
	if parent, _ := ParentOf(items, id); parent == targetFolderID {
		return items, false
	}
	if _, ok := ChildrenOf(items, targetFolderID); !ok {
		return items, false
	}
	if Contains(items, id, targetFolderID) {
		return items, false
	}

	moved := WithPosition(item, pos)
	rest := RemoveByID(items, id)
	if targetFolderID == "" {
		return append(slices.Clone(rest), moved), true
	}

	target, _ := FindByID(rest, targetFolderID)
	folder := target.(Folder)
	folder.Children = append(slices.Clone(folder.Children), moved)
	return ReplaceByID(rest, targetFolderID, folder), true
}

// Walk visits every item in pre-order with the ID of its parent folder.
// Returning false from fn stops the walk.
func Walk(items Items, fn func(parentID string, item Item) bool) {
	walk(items, "", fn)
}

func walk(items Items, parentID string, fn func(string, Item) bool) bool {
	for _, item := range items {
		if !fn(parentID, item) {
			return false
		}
		switch it := item.(type) {
		case Folder:
			if !walk(it.Children, it.ID, fn) {
				return false
			}
		case Bookmark:
		}
	}
	return true
}

// Count returns the number of items in the tree, folders included.
func Count(items Items) int {
	n := 0
	Walk(items, func(string, Item) bool {
		n++
		return true
	})
	return n
}

// Bookmarks returns every bookmark in pre-order.
func Bookmarks(items Items) []Bookmark {
	var out []Bookmark
	Walk(items, func(_ string, item Item) bool {
		if b, ok := item.(Bookmark); ok {
			out = append(out, b)
		}
		return true
	})
	return out
}

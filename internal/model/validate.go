package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrNotFound        = errors.New("item not found")
	ErrInvalidDocument = errors.New("invalid document")
)

// ValidationError reports a rejected form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NormalizeName trims name and rejects it when empty.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Message: "Name is required"}
	}
	return name, nil
}

// NormalizeURL trims raw, prefixes https:// when no http(s) scheme is given
// and checks that the result parses with a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ValidationError{Field: "url", Message: "URL is required"}
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "", &ValidationError{Field: "url", Message: "Please enter a valid URL"}
	}
	return raw, nil
}

// Check verifies the structural invariants of a tree: every item has a
// non-empty ID unique across the whole tree and a non-empty name, and every
// bookmark has a URL.
func Check(items Items) error {
	seen := make(map[string]bool)
	var err error
	Walk(items, func(_ string, item Item) bool {
		m := item.Base()
		switch {
		case m.ID == "":
			err = fmt.Errorf("%w: item %q has no id", ErrInvalidDocument, m.Name)
		case seen[m.ID]:
			err = fmt.Errorf("%w: duplicate id %q", ErrInvalidDocument, m.ID)
		case strings.TrimSpace(m.Name) == "":
			err = fmt.Errorf("%w: item %q has no name", ErrInvalidDocument, m.ID)
		}
		if err != nil {
			return false
		}
		seen[m.ID] = true

		switch it := item.(type) {
		case Bookmark:
			if it.URL == "" {
				err = fmt.Errorf("%w: bookmark %q has no url", ErrInvalidDocument, it.ID)
			}
		case Folder:
		}
		return err == nil
	})
	return err
}

// ParseDocument decodes and checks a whole-tree JSON document.
func ParseDocument(data []byte) (Items, error) {
	var items Items
	if err := json.Unmarshal(data, &items); err != nil {
		if errors.Is(err, ErrInvalidDocument) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if items == nil {
		items = Items{}
	}
	if err := Check(items); err != nil {
		return nil, err
	}
	return items, nil
}

// EncodeDocument serializes the tree as an indented JSON document.
func EncodeDocument(items Items) ([]byte, error) {
	if items == nil {
		items = Items{}
	}
	return json.MarshalIndent(items, "", "  ")
}

package search

import (
	"slices"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nikbrunner/deskmark/internal/model"
)

// Field names a searchable item field.
type Field string

const (
	FieldName  Field = "name"
	FieldURL   Field = "url"
	FieldNotes Field = "notes"
)

var weights = map[Field]int{
	FieldName:  3,
	FieldURL:   2,
	FieldNotes: 1,
}

// Match is an item that matched a query. Terms holds the distinct matched
// substrings per field; a field with no hits has no key.
type Match struct {
	Item  model.Item
	Terms map[Field][]string
	Score int
}

// Matched returns the substrings matched in f and whether f matched at all.
func (m Match) Matched(f Field) ([]string, bool) {
	terms, ok := m.Terms[f]
	return terms, ok
}

var lower = cases.Lower(language.Und)

// Tokenize lowercases query and splits it on whitespace.
func Tokenize(query string) []string {
	return strings.Fields(lower.String(query))
}

// Search returns every item in items, at any depth, whose name, URL or
// notes contain at least one query term. Results are ranked by score,
// highest first; equal scores keep pre-order.
func Search(query string, items model.Items) []Match {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	var results []Match
	model.Walk(items, func(_ string, item model.Item) bool {
		if m, ok := match(item, terms); ok {
			results = append(results, m)
		}
		return true
	})

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func match(item model.Item, terms []string) (Match, bool) {
	meta := item.Base()
	fields := map[Field]string{FieldName: meta.Name}
	if meta.Notes != "" {
		fields[FieldNotes] = meta.Notes
	}
	switch it := item.(type) {
	case model.Bookmark:
		fields[FieldURL] = it.URL
	case model.Folder:
	}

	m := Match{Item: item, Terms: map[Field][]string{}}
	for f, text := range fields {
		hits := find(lower.String(text), terms)
		if len(hits) == 0 {
			continue
		}
		m.Terms[f] = hits
		m.Score += weights[f] * len(hits)
	}
	return m, len(m.Terms) > 0
}

// find returns the distinct terms occurring in text, in query order.
func find(text string, terms []string) []string {
	var hits []string
	for _, t := range terms {
		if strings.Contains(text, t) && !slices.Contains(hits, t) {
			hits = append(hits, t)
		}
	}
	return hits
}

// FuzzyResult is a bookmark ranked by fuzzy name match.
type FuzzyResult struct {
	Bookmark       model.Bookmark
	MatchedIndexes []int
	Score          int
}

// AsMatch converts r into a Match on the name field.
func (r FuzzyResult) AsMatch() Match {
	return Match{
		Item:  r.Bookmark,
		Terms: map[Field][]string{FieldName: {r.Bookmark.Name}},
		Score: r.Score,
	}
}

// bookmarkNames implements fuzzy.Source for a bookmark slice.
type bookmarkNames []model.Bookmark

func (bn bookmarkNames) String(i int) string {
	return bn[i].Name
}

func (bn bookmarkNames) Len() int {
	return len(bn)
}

// Fuzzy searches all bookmarks in items by name using fuzzy matching.
// Returns results sorted by match score (best first).
func Fuzzy(items model.Items, query string) []FuzzyResult {
	if query == "" {
		return nil
	}

	bookmarks := bookmarkNames(model.Bookmarks(items))
	matches := fuzzy.FindFrom(query, bookmarks)

	results := make([]FuzzyResult, len(matches))
	for i, m := range matches {
		results[i] = FuzzyResult{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/deskmark/internal/model"
	"github.com/nikbrunner/deskmark/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Underline(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// Picker is a simple TUI for selecting from search results.
type Picker struct {
	results   []search.Match
	query     string
	keys      KeyMap
	copy      func(string) error
	cursor    int
	selected  bool
	cancelled bool
	status    string
	width     int
	height    int
}

// New creates a new Picker with the given search results.
func New(results []search.Match, query string) Picker {
	return Picker{
		results: results,
		query:   query,
		keys:    DefaultKeyMap(),
		copy:    clipboard.WriteAll,
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		p.status = ""
		switch {
		case key.Matches(msg, p.keys.Quit):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Select):
			if len(p.results) == 0 {
				return p, nil
			}
			p.selected = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}

		case key.Matches(msg, p.keys.Top):
			p.cursor = 0

		case key.Matches(msg, p.keys.Bottom):
			p.cursor = max(0, len(p.results)-1)

		case key.Matches(msg, p.keys.YankURL):
			p.status = p.yank()
		}
	}

	return p, nil
}

func (p Picker) yank() string {
	if p.cursor >= len(p.results) {
		return ""
	}
	b, ok := p.results[p.cursor].Item.(model.Bookmark)
	if !ok {
		return "Folders have no URL"
	}
	if err := p.copy(b.URL); err != nil {
		return "Copy failed: " + err.Error()
	}
	return "Copied " + b.URL
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	// Header
	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	// Keep the cursor on screen; each result takes two lines.
	visible := max(1, (p.height-6)/2)
	start := 0
	if p.cursor >= visible {
		start = p.cursor - visible + 1
	}
	end := min(len(p.results), start+visible)

	for i := start; i < end; i++ {
		m := p.results[i]
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		terms, _ := m.Matched(search.FieldName)
		name := highlight(truncate(m.Item.Base().Name, p.width-2), terms, style)

		var detail string
		switch it := m.Item.(type) {
		case model.Bookmark:
			detail = it.URL
		case model.Folder:
			detail = fmt.Sprintf("folder, %d items", len(it.Children))
		}

		fmt.Fprintf(&b, "%s%s\n", cursor, name)
		fmt.Fprintf(&b, "   %s\n", urlStyle.Render(truncate(detail, p.width-3)))
	}

	// Footer
	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(dimStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(p.keys.help()))

	return b.String()
}

// highlight renders text with every case-insensitive occurrence of terms in
// matchStyle and the rest in base.
func highlight(text string, terms []string, base lipgloss.Style) string {
	if len(terms) == 0 {
		return base.Render(text)
	}

	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		// Byte offsets would not line up.
		return base.Render(text)
	}
	marked := make([]bool, len(text))
	for _, t := range terms {
		for from := 0; from < len(lower); {
			i := strings.Index(lower[from:], t)
			if i < 0 || t == "" {
				break
			}
			for j := from + i; j < from+i+len(t); j++ {
				marked[j] = true
			}
			from += i + len(t)
		}
	}

	var b strings.Builder
	for i := 0; i < len(text); {
		j := i
		for j < len(text) && marked[j] == marked[i] {
			j++
		}
		if marked[i] {
			b.WriteString(matchStyle.Render(text[i:j]))
		} else {
			b.WriteString(base.Render(text[i:j]))
		}
		i = j
	}
	return b.String()
}

// truncate shortens text to width runes, ending in an ellipsis.
func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-1]) + "…"
}

// Selected returns the selected item. ok is false if the picker was
// cancelled or nothing was chosen.
func (p Picker) Selected() (model.Item, bool) {
	if p.cancelled || !p.selected || p.cursor >= len(p.results) {
		return nil, false
	}
	return p.results[p.cursor].Item, true
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}

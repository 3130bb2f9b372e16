package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/deskmark/internal/model"
	"github.com/nikbrunner/deskmark/internal/picker"
	"github.com/nikbrunner/deskmark/internal/search"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		folder string
		plain  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search names, URLs and notes",
		Long: `Search every item by name, URL and notes.

Name matches rank above URL matches, which rank above notes matches.
With more than one result a picker opens; the chosen bookmark is opened in
the browser and a chosen folder is listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.resolveFolder(folder)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			results := a.desk.Search(query, scope)

			if len(results) == 0 {
				fmt.Printf("No items found for '%s'\n", query)
				return nil
			}
			if plain {
				printMatches(results)
				return nil
			}
			return a.pick(results, query)
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "only search inside this folder")
	cmd.Flags().BoolVar(&plain, "plain", false, "print results instead of opening the picker")
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <query>...",
		Short: "Fuzzy find a bookmark by name and open it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			found := search.Fuzzy(a.desk.Items(), query)

			if len(found) == 0 {
				fmt.Printf("No bookmarks found for '%s'\n", query)
				return nil
			}
			results := make([]search.Match, len(found))
			for i, r := range found {
				results[i] = r.AsMatch()
			}
			return a.pick(results, query)
		},
	}
}

func printMatches(results []search.Match) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tID\tNAME\tFIELDS")
	for _, m := range results {
		var fields []string
		for _, f := range []search.Field{search.FieldName, search.FieldURL, search.FieldNotes} {
			if terms, ok := m.Matched(f); ok {
				fields = append(fields, fmt.Sprintf("%s(%s)", f, strings.Join(terms, ",")))
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.Score, m.Item.Base().ID, m.Item.Base().Name, strings.Join(fields, " "))
	}
	w.Flush()
}

// pick lets the user choose one of results and acts on it. A single result
// is chosen directly.
func (a *app) pick(results []search.Match, query string) error {
	var chosen model.Item

	if len(results) == 1 {
		chosen = results[0].Item
	} else {
		p := picker.New(results, query)
		program := tea.NewProgram(p)
		finalModel, err := program.Run()
		if err != nil {
			return fmt.Errorf("run picker: %w", err)
		}

		finalPicker := finalModel.(picker.Picker)
		item, ok := finalPicker.Selected()
		if !ok {
			return nil
		}
		chosen = item
	}

	switch it := chosen.(type) {
	case model.Bookmark:
		return a.open(it.ID)
	case model.Folder:
		if err := a.desk.Open(it.ID); err != nil {
			return err
		}
		printItems(a.desk.View())
	}
	return nil
}

// open records the visit and hands the URL to the browser.
func (a *app) open(id string) error {
	b, err := a.desk.Visit(id)
	if err != nil {
		return err
	}
	fmt.Printf("Opening: %s\n", b.Name)
	return openURL(b.URL)
}

// openURL opens a URL in the default browser.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("opening URLs is not supported on %s", runtime.GOOS)
	}
	return cmd.Start()
}

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <bookmark>",
		Short: "Open a bookmark in the browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			return a.open(item.Base().ID)
		},
	}
}

func newRecentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recently opened bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.desk.Recent()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No recent items")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LAST USED\tNAME\tURL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.LastUsed.Format("2006-01-02 15:04"), e.Name, e.URL)
			}
			return w.Flush()
		},
	}
}

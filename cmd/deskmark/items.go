package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/deskmark/internal/desk"
	"github.com/nikbrunner/deskmark/internal/model"
)

// resolve looks an item up by ID or name.
func (a *app) resolve(ref string) (model.Item, error) {
	item, ok := a.desk.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%q: %w", ref, model.ErrNotFound)
	}
	return item, nil
}

// resolveFolder maps a folder reference to its ID. "" and "/" are the root.
func (a *app) resolveFolder(ref string) (string, error) {
	if ref == "" || ref == "/" {
		return "", nil
	}
	item, err := a.resolve(ref)
	if err != nil {
		return "", err
	}
	switch item.(type) {
	case model.Folder:
		return item.Base().ID, nil
	case model.Bookmark:
	}
	return "", fmt.Errorf("%q is not a folder", ref)
}

// parsePosition parses "X,Y".
func parsePosition(s string) (model.Position, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return model.Position{}, fmt.Errorf("position %q: want X,Y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return model.Position{}, fmt.Errorf("position %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return model.Position{}, fmt.Errorf("position %q: %w", s, err)
	}
	return model.Position{X: x, Y: y}, nil
}

func newLsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "ls [folder]",
		Short:   "List the items on the desktop or in a folder",
		Aliases: []string{"list"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				id, err := a.resolveFolder(args[0])
				if err != nil {
					return err
				}
				if id != "" {
					if err := a.desk.Open(id); err != nil {
						return err
					}
				}
			}
			items := a.desk.View()

			if asJSON {
				data, err := model.EncodeDocument(items)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if path := a.desk.Path(); len(path) > 0 {
				names := make([]string, len(path))
				for i, m := range path {
					names[i] = m.Name
				}
				fmt.Printf("/%s\n\n", strings.Join(names, "/"))
			}
			if len(items) == 0 {
				fmt.Println("No items")
				return nil
			}
			printItems(items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the items as a JSON document")
	return cmd
}

func printItems(items model.Items) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tPOSITION\tTARGET")
	for _, item := range items {
		m := item.Base()
		var target string
		switch it := item.(type) {
		case model.Bookmark:
			target = it.URL
		case model.Folder:
			target = fmt.Sprintf("%d items", len(it.Children))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f,%.0f\t%s\n", m.ID, item.Kind(), m.Name, m.Position.X, m.Position.Y, target)
	}
	w.Flush()
}

// itemFlags are shared by add and mkdir.
type itemFlags struct {
	folder string
	notes  string
	at     string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.folder, "folder", "f", "", "folder to create the item in (default the desktop)")
	cmd.Flags().StringVarP(&f.notes, "notes", "n", "", "free-form notes")
	cmd.Flags().StringVar(&f.at, "at", "", "preferred position as X,Y (default a random spot)")
}

func (a *app) create(f itemFlags, in desk.ItemInput) error {
	folderID, err := a.resolveFolder(f.folder)
	if err != nil {
		return err
	}
	in.FolderID = folderID
	in.Notes = f.notes
	if f.at != "" {
		pos, err := parsePosition(f.at)
		if err != nil {
			return err
		}
		in.Position = &pos
	}

	item, err := a.desk.CreateItem(in)
	if err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return err
	}

	pos := item.Base().Position
	fmt.Printf("Created %s %q (%s) at %.0f,%.0f\n", item.Kind(), item.Base().Name, item.Base().ID, pos.X, pos.Y)
	return nil
}

func newAddCmd(a *app) *cobra.Command {
	var f itemFlags

	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a bookmark",
		Long: `Add a bookmark to the desktop or to a folder.

A URL without a scheme gets https:// prepended.

Examples:
  deskmark add Docs go.dev/doc
  deskmark add "React Router" reactrouter.com --folder Frontend --at 300,200`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.create(f, desk.ItemInput{
				Kind: model.KindBookmark,
				Name: args[0],
				URL:  args[1],
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newMkdirCmd(a *app) *cobra.Command {
	var f itemFlags

	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.create(f, desk.ItemInput{
				Kind: model.KindFolder,
				Name: args[0],
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var name, url, notes string

	cmd := &cobra.Command{
		Use:   "edit <item>",
		Short: "Rename an item or change its URL or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.resolve(args[0])
			if err != nil {
				return err
			}

			m := item.Base()
			in := desk.EditInput{Name: m.Name, Notes: m.Notes}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("url") {
				in.URL = url
			}
			if cmd.Flags().Changed("notes") {
				in.Notes = notes
			}

			if _, err := a.desk.RenameOrEdit(m.ID, in); err != nil {
				return err
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Printf("Updated %s\n", m.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&url, "url", "", "new URL (bookmarks only)")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <item>...",
		Short:   "Delete items, including everything inside folders",
		Aliases: []string{"delete"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			removed := 0
			for _, ref := range args {
				item, err := a.resolve(ref)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				before := model.Count(a.desk.Items())
				removed += before - model.Count(a.desk.DeleteItem(item.Base().ID))
			}
			if removed > 0 {
				if err := a.save(); err != nil {
					return err
				}
			}
			fmt.Printf("Deleted %d items\n", removed)
			return errors.Join(errs...)
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <item> <X,Y>",
		Short: "Move an item to the free spot nearest a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			pos, err := parsePosition(args[1])
			if err != nil {
				return err
			}

			id := item.Base().ID
			items := a.desk.MoveItem(id, pos)
			if err := a.save(); err != nil {
				return err
			}

			moved, _ := model.FindByID(items, id)
			got := moved.Base().Position
			fmt.Printf("Moved %s to %.0f,%.0f\n", id, got.X, got.Y)
			return nil
		},
	}
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <item> <folder>",
		Short: "Move an item into a folder (/ for the desktop)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			folderID, err := a.resolveFolder(args[1])
			if err != nil {
				return err
			}

			id := item.Base().ID
			a.desk.ReparentItem(id, folderID)
			if parent, _ := model.ParentOf(a.desk.Items(), id); parent != folderID {
				return fmt.Errorf("cannot move %q into %q", args[0], args[1])
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Printf("Moved %s into %s\n", id, args[1])
			return nil
		},
	}
}

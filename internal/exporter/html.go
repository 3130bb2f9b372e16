package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/deskmark/internal/model"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/deskmark-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("deskmark-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML exports the tree to Netscape bookmark HTML format. Items keep
// their order; notes are written as <DD> descriptions.
func ExportHTML(items model.Items) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	writeItems(&b, items, 1)

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

// writeItems recursively writes one sibling set.
func writeItems(b *strings.Builder, items model.Items, indent int) {
	prefix := strings.Repeat("    ", indent)

	for _, item := range items {
		switch it := item.(type) {
		case model.Folder:
			fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(it.Name))
			writeNotes(b, prefix, it.Notes)
			fmt.Fprintf(b, "%s<DL><p>\n", prefix)
			writeItems(b, it.Children, indent+1)
			fmt.Fprintf(b, "%s</DL><p>\n", prefix)
		case model.Bookmark:
			fmt.Fprintf(b,
				"%s<DT><A HREF=\"%s\">%s</A>\n",
				prefix,
				html.EscapeString(it.URL),
				html.EscapeString(it.Name),
			)
			writeNotes(b, prefix, it.Notes)
		}
	}
}

func writeNotes(b *strings.Builder, prefix, notes string) {
	if notes == "" {
		return
	}
	fmt.Fprintf(b, "%s<DD>%s\n", prefix, html.EscapeString(strings.ReplaceAll(notes, "\n", " ")))
}

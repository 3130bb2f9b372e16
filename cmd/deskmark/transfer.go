package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/deskmark/internal/exporter"
	"github.com/nikbrunner/deskmark/internal/model"
	"github.com/nikbrunner/deskmark/internal/validate"
)

func newCheckCmd(a *app) *cobra.Command {
	var invalidOnly bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every bookmark URL is reachable",
		Long: `Check every bookmark URL with a HEAD request, falling back to GET.

404 and 410 responses are invalid, except on excluded domains where the
page may just need a login. Timeouts and other failures are unverified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			checker := validate.NewChecker(validate.Params{
				Timeout:        a.cfg.Validate.Timeout,
				Concurrency:    a.cfg.Validate.Concurrency,
				ExcludeDomains: a.cfg.Validate.ExcludeDomains,
				Logger:         a.log,
			})
			err := a.desk.ValidateReachability(ctx, checker)

			counts := map[validate.Status]int{}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tNAME\tURL\tDETAIL")
			for _, b := range model.Bookmarks(a.desk.Items()) {
				r, ok := a.desk.Validation(b.ID)
				if !ok {
					continue
				}
				counts[r.Status]++
				if invalidOnly && r.Valid() {
					continue
				}
				detail := r.Error
				if detail == "" && r.StatusCode != 0 {
					detail = fmt.Sprintf("HTTP %d", r.StatusCode)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Status, b.Name, b.URL, detail)
			}
			w.Flush()

			fmt.Printf("\n%d valid, %d invalid, %d unverified\n",
				counts[validate.Valid], counts[validate.Invalid], counts[validate.Unverified])
			return err
		},
	}
	cmd.Flags().BoolVar(&invalidOnly, "invalid", false, "only list bookmarks that failed")
	return cmd
}

// formatOf picks json or html from an explicit flag or the file extension.
func formatOf(flag, path string) (string, error) {
	format := strings.ToLower(flag)
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html", ".htm":
			format = "html"
		default:
			format = "json"
		}
	}
	if format != "json" && format != "html" {
		return "", fmt.Errorf("unknown format %q (want json or html)", flag)
	}
	return format, nil
}

func newImportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a desktop document or a browser bookmark file",
		Long: `Import a file into the desktop.

A JSON document replaces the whole desktop and is rejected as a whole if it
is malformed. A Netscape bookmark file (as exported by browsers) is added
to the desktop next to the existing items.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatOf(format, args[0])
			if err != nil {
				return err
			}

			switch format {
			case "html":
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open file: %w", err)
				}
				defer file.Close()

				added, err := a.desk.ImportHTML(file)
				if err != nil {
					return err
				}
				if err := a.save(); err != nil {
					return err
				}
				fmt.Printf("Imported %d items\n", added)

			case "json":
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read file: %w", err)
				}
				if err := a.desk.Import(data); err != nil {
					return err
				}
				if err := a.save(); err != nil {
					return err
				}
				fmt.Printf("Imported %d items\n", model.Count(a.desk.Items()))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or html (default from the file extension)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export the desktop as JSON or as a browser bookmark file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var outputPath string
			if len(args) == 1 {
				outputPath = args[0]
			}
			if format == "" && outputPath == "" {
				format = "html"
			}
			format, err := formatOf(format, outputPath)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "html":
				if outputPath == "" {
					if outputPath, err = exporter.DefaultExportPath(); err != nil {
						return fmt.Errorf("default export path: %w", err)
					}
				}
				data = []byte(exporter.ExportHTML(a.desk.Items()))
			case "json":
				if data, err = a.desk.Export(); err != nil {
					return err
				}
			}

			if outputPath == "" || outputPath == "-" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(outputPath, data, 0644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}

			items := a.desk.Items()
			fmt.Printf("Exported %d items (%d bookmarks) to %s\n",
				model.Count(items), len(model.Bookmarks(items)), outputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or html (default from the file extension)")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/deskmark/internal/config"
	"github.com/nikbrunner/deskmark/internal/desk"
	"github.com/nikbrunner/deskmark/internal/placement"
	"github.com/nikbrunner/deskmark/internal/recent"
	"github.com/nikbrunner/deskmark/internal/storage"
)

// app is the state shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store storage.Storage
	desk  *desk.Desktop
}

// save writes the current tree back to storage.
func (a *app) save() error {
	if err := a.store.Save(a.desk.Items()); err != nil {
		return fmt.Errorf("save desktop: %w", err)
	}
	return nil
}

func (a *app) close() error {
	if c, ok := a.store.(io.Closer); ok && c != nil {
		return c.Close()
	}
	return nil
}

func main() {
	rootCmd, a := newRootCmd()
	if err := execute(rootCmd, a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs the command tree and closes the store however it ended.
// Cobra skips post-run hooks on errors, so closing happens here.
func execute(rootCmd *cobra.Command, a *app) error {
	err := rootCmd.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd() (*cobra.Command, *app) {
	var (
		configPath string
		verbose    bool
	)
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "deskmark",
		Short: "Bookmarks laid out on a virtual desktop",
		Long: `deskmark keeps bookmarks and folders as icons on a virtual desktop.

Items are placed so they never overlap their siblings. Folders open into
their own desktop.

Data lives in ~/.config/deskmark/ (desktop.json or desktop.db).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/deskmark/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
		a.log = logger

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg

		store, err := storage.OpenStorage(cfg.Storage.Backend, cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		a.store = store

		items, err := store.Load()
		if err != nil {
			return err
		}

		recentStore, err := openRecent(cfg, store)
		if err != nil {
			return err
		}

		placer := placement.New(placement.Params{
			Layout: cfg.Layout,
			Canvas: cfg.Canvas,
			Logger: logger,
		})
		a.desk = desk.New(desk.Params{
			Items:  items,
			Placer: placer,
			Recent: recentStore,
			Logger: logger,
		})

		logger.WithFields(logrus.Fields{
			"backend": fmt.Sprintf("%T", store),
			"items":   len(items),
		}).Debug("desktop loaded")
		return nil
	}

	rootCmd.AddCommand(
		newLsCmd(a),
		newAddCmd(a),
		newMkdirCmd(a),
		newEditCmd(a),
		newRmCmd(a),
		newMoveCmd(a),
		newMvCmd(a),
		newSearchCmd(a),
		newFindCmd(a),
		newOpenCmd(a),
		newRecentCmd(a),
		newCheckCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return rootCmd, a
}

// openRecent keeps recent items next to the tree when the tree lives in
// SQLite, and in a JSON file otherwise.
func openRecent(cfg *config.Config, store storage.Storage) (recent.Store, error) {
	if rs, ok := store.(recent.Store); ok && cfg.Recent.Path == "" {
		return rs, nil
	}
	path := cfg.Recent.Path
	if path == "" {
		var err error
		if path, err = recent.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return recent.NewFile(path), nil
}

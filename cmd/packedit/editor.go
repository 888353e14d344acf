package main

import (
	"path/filepath"

	"packedit/internal/bus"
	"packedit/internal/gui"
	"packedit/internal/log"
	"packedit/internal/tui"
	"packedit/pkg/types"

	"github.com/spf13/cobra"
)

type editorFlags struct {
	watch bool
	out   string
}

func (f *editorFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "re-import files that change in the folder")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "extract every entry to this folder when the editor closes")
}

// watching resolves --watch against the config
func (f *editorFlags) watching(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("watch") {
		return f.watch
	}
	return cfg.Watch.Enabled
}

// tuiCmd represents the TUI command
func tuiCmd() *cobra.Command {
	var flags editorFlags

	cmd := &cobra.Command{
		Use:         "tui <folder>",
		Short:       "Edit a folder in the terminal",
		Long:        `Open the entries of an unpacked PackFile folder in the terminal editor.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{terminalAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg, args[0], flags.watching(cmd))
			if err != nil {
				return err
			}

			m := tui.New(s.bus, tui.Options{
				Title:         filepath.Base(args[0]),
				SinglePreview: cfg.Views.SinglePreview,
			})
			if s.syncer != nil {
				s.syncer.SetCallback(func(p types.Path, err error) {
					m.Scheduler().Do(m.Refresh)
				})
			}

			runErr := tui.Run(m)
			return finish(s, flags.out, runErr)
		},
	}
	flags.register(cmd)
	return cmd
}

// guiCmd creates the GUI command for the CLI
func guiCmd() *cobra.Command {
	var flags editorFlags

	cmd := &cobra.Command{
		Use:   "gui <folder>",
		Short: "Edit a folder in a desktop window",
		Long:  `Open the entries of an unpacked PackFile folder in the graphical editor.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !gui.IsGUIAvailable() {
				return gui.Run(nil, gui.Options{})
			}
			s, err := openSession(cmd.Context(), cfg, args[0], flags.watching(cmd))
			if err != nil {
				return err
			}

			guiOpts := gui.Options{
				Title:         filepath.Base(args[0]),
				SinglePreview: cfg.Views.SinglePreview,
			}
			if s.syncer != nil {
				guiOpts.Attach = func(refresh func()) {
					s.syncer.SetCallback(func(types.Path, error) { refresh() })
				}
			}

			runErr := gui.Run(s.bus, guiOpts)
			return finish(s, flags.out, runErr)
		},
	}
	flags.register(cmd)
	return cmd
}

// finish extracts the edited archive when out is set, then closes s
func finish(s *session, out string, runErr error) error {
	if runErr == nil && out != "" {
		resp, err := s.send(bus.Extract{Dir: out})
		if err != nil {
			runErr = err
		} else {
			log.LogWithFields(log.F("dir", out), log.F("entries", len(resp.Entries))).Info("Archive extracted")
		}
	}
	if err := s.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

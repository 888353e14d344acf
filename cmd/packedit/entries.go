package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"packedit/internal/bus"
	"packedit/internal/errors"
	"packedit/internal/packedfile"
	"packedit/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// lsCmd lists the entries of a folder
func lsCmd() *cobra.Command {
	var (
		typeFilter string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "ls <folder>",
		Short: "List the entries of a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var only *types.PackedFileType
			if typeFilter != "" {
				t, err := types.ParsePackedFileType(typeFilter)
				if err != nil {
					return err
				}
				only = &t
			}

			s, err := openSession(cmd.Context(), cfg, args[0], false)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.send(bus.List{})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			var total int64
			for _, e := range resp.Entries {
				if only != nil && e.Type != *only {
					continue
				}
				total += e.Size
				if asJSON {
					fmt.Fprintln(w, e.ToJSON())
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Type, humanize.Bytes(uint64(e.Size)), e.Path)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d entries, %s\n", len(resp.Entries), humanize.Bytes(uint64(total)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeFilter, "type", "t", "", "only list entries of this type (unknown, text, table, image)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per entry")
	return cmd
}

// catCmd prints one decoded entry
func catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <folder> <path>",
		Short: "Print a decoded entry",
		Long: `Print a text entry as is and a table entry as tab separated rows.
Images and unknown entries print a short description instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := types.ParsePath(args[1])
			if p.IsEmpty() {
				return errors.NewKind(errors.InvalidState, "entry path is required")
			}

			s, err := openSession(cmd.Context(), cfg, args[0], false)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.send(bus.Fetch{Path: p})
			if err != nil {
				return err
			}
			return printFile(cmd.OutOrStdout(), resp.File)
		},
	}
}

func printFile(w io.Writer, file packedfile.DecodedFile) error {
	var err error
	switch f := file.(type) {
	case *packedfile.Text:
		_, err = io.WriteString(w, f.Contents)
	case *packedfile.Table:
		lines := make([]string, 0, len(f.Rows)+1)
		lines = append(lines, strings.Join(f.Columns, "\t"))
		for _, row := range f.Rows {
			lines = append(lines, strings.Join(row, "\t"))
		}
		_, err = fmt.Fprintln(w, strings.Join(lines, "\n"))
	case *packedfile.Image:
		_, err = fmt.Fprintf(w, "%s image, %d x %d, %s\n", f.Format, f.Width, f.Height, humanize.Bytes(uint64(len(f.Data))))
	case *packedfile.Unknown:
		_, err = fmt.Fprintf(w, "unknown entry, %s\n", humanize.Bytes(uint64(len(f.Data))))
	default:
		err = errors.NewKind(errors.UnsupportedType, "cannot print %T", file)
	}
	return err
}

// extractCmd writes entries of a folder below another folder
func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <folder> <out> [paths...]",
		Short: "Extract entries to a folder",
		Long:  `Write the given entries, or every entry when none is given, below the output folder.`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]types.Path, 0, len(args)-2)
			for _, a := range args[2:] {
				paths = append(paths, types.ParsePath(a))
			}

			s, err := openSession(cmd.Context(), cfg, args[0], false)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.send(bus.Extract{Paths: paths, Dir: args[1]})
			if err != nil {
				return err
			}
			for _, e := range resp.Entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Path, humanize.Bytes(uint64(e.Size)))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Extracted %d entries to %s\n", len(resp.Entries), args[1])
			return nil
		},
	}
}

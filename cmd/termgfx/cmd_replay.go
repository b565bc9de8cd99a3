package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/termgfx/internal/graphics"
	"github.com/llehouerou/termgfx/internal/kittyimg"
)

// newReplayCmd creates the "termgfx replay" subcommand.
func newReplayCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "replay [stream]",
		Short: "Feed a captured escape stream through the image store",
		Long:  "Read a byte stream (a file, or stdin when omitted or \"-\"), handle every\ngraphics command in it and print the resulting store contents.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			r, closeFn, err := openStream(cmd, args)
			if err != nil {
				return err
			}
			defer closeFn()

			store, stats, err := replay(cfg, r, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer store.Close()

			_, err = io.WriteString(cmd.OutOrStdout(), renderSummary(cmd.OutOrStdout(), store, stats))
			return err
		},
	}
}

// openStream opens the stream named by args, or stdin.
func openStream(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// renderSummary lists the commands seen and every stored image.
func renderSummary(w io.Writer, store *graphics.Store, stats kittyimg.Stats) string {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true)
	header := r.NewStyle().Foreground(lipgloss.Color("240"))
	ok := r.NewStyle().Foreground(lipgloss.Color("2"))
	bad := r.NewStyle().Foreground(lipgloss.Color("1"))

	var b strings.Builder
	b.WriteString(title.Render("Commands") + "\n")
	fmt.Fprintf(&b, "  handled %d, failed %d, malformed %d, ignored %d\n",
		stats.Commands, stats.Failed, stats.Malformed, stats.Ignored)

	b.WriteString(title.Render(fmt.Sprintf("Images (%d of %d slots)", store.Len(), store.Cap())) + "\n")
	if store.Len() == 0 {
		b.WriteString("  none\n")
		return b.String()
	}

	b.WriteString(header.Render(fmt.Sprintf("  %8s %8s %11s %6s %10s  %s", "id", "internal", "size", "format", "bytes", "state")) + "\n")
	for _, img := range store.Images() {
		state := ok.Render("loaded")
		if !img.Loaded() {
			state = bad.Render("partial")
		}
		if store.InProgress() == img.InternalID {
			state = bad.Render("uploading")
		}
		fmt.Fprintf(&b, "  %8d %8d %11s %6s %10s  %s\n",
			img.ClientID, img.InternalID,
			fmt.Sprintf("%dx%d", img.Width, img.Height),
			img.Format(),
			humanize.IBytes(uint64(len(img.Data()))),
			state)
	}
	return b.String()
}

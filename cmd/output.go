package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shiggsy365/bookstack/core"
	"github.com/shiggsy365/bookstack/core/output"
	"github.com/shiggsy365/bookstack/core/render"
)

// formatFlags selects at most one file output for a command. With none set
// the command prints to stdout.
type formatFlags struct {
	pdf       bool
	markdown  bool
	json      bool
	outputDir string
}

func (f *formatFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.pdf, "pdf", false, "Write a PDF")
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "Write Markdown")
	cmd.Flags().BoolVar(&f.json, "json", false, "Write structured JSON")
	cmd.Flags().StringVar(&f.outputDir, "output_dir", "", "Output directory (default: current directory)")
}

func (f *formatFlags) validate() error {
	n := 0
	for _, set := range []bool{f.pdf, f.markdown, f.json} {
		if set {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("only one output format allowed per run (got %d)", n)
	}
	return nil
}

// renderer returns nil when no file output was requested.
func (f *formatFlags) renderer() core.Renderer {
	switch {
	case f.markdown:
		return render.NewMarkdownRenderer()
	case f.json:
		return render.NewJSONRenderer()
	case f.pdf:
		return render.NewPDFRenderer()
	default:
		return nil
	}
}

// emit renders doc to a file named name, or prints its Markdown when no
// format flag is set.
func (f *formatFlags) emit(cmd *cobra.Command, doc core.Document, name string) error {
	r := f.renderer()
	if r == nil {
		fmt.Fprint(cmd.OutOrStdout(), doc.Markdown)
		return nil
	}

	data, err := r.Render(doc)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	w, err := output.New(f.outputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	path, err := w.Write(name, data, r.Extension())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	return nil
}

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/paiml/sovereign-ai-stack-book/internal/experiment"
	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
)

// DefaultWidth is used when the terminal width cannot be read.
const DefaultWidth = 100

// Renderer writes reports in one format.
type Renderer struct {
	w      io.Writer
	format Format
	tty    bool
	width  int
	styles styles
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWidth overrides the detected terminal width.
func WithWidth(width int) Option {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
	}
}

// WithTTY overrides terminal detection.
func WithTTY(tty bool) Option {
	return func(r *Renderer) {
		r.tty = tty
	}
}

// New creates a renderer for w. Styling and markdown rendering are enabled
// only when w is a terminal and NO_COLOR is unset.
func New(w io.Writer, format Format, opts ...Option) *Renderer {
	r := &Renderer{w: w, format: format, width: DefaultWidth}
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		r.tty = (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("NO_COLOR") == ""
		if width, _, err := term.GetSize(int(fd)); err == nil && width > 0 {
			r.width = width
		}
	}
	for _, opt := range opts {
		opt(r)
	}

	lr := lipgloss.NewRenderer(w)
	if !r.tty {
		lr.SetColorProfile(termenv.Ascii)
	}
	r.styles = newStyles(lr)
	return r
}

// Format returns the renderer's format.
func (r *Renderer) Format() Format {
	return r.format
}

// Report writes an experiment report.
func (r *Renderer) Report(rep *experiment.Report) error {
	switch r.format {
	case FormatJSON:
		return r.JSON(rep)
	case FormatYAML:
		return r.YAML(rep)
	case FormatMarkdown:
		return r.markdown(reportMarkdown(rep))
	default:
		_, err := io.WriteString(r.w, r.reportText(rep))
		return err
	}
}

// Quorum writes the sizing for one fault tolerance.
func (r *Renderer) Quorum(q quorum.Quorum) error {
	switch r.format {
	case FormatJSON:
		return r.JSON(q)
	case FormatYAML:
		return r.YAML(q)
	case FormatMarkdown:
		return r.markdown(quorumMarkdown(q))
	default:
		_, err := io.WriteString(r.w, r.quorumText(q))
		return err
	}
}

// Error writes err as an ErrorResponse in JSON and YAML, or as a plain line
// otherwise.
func (r *Renderer) Error(err error) error {
	switch r.format {
	case FormatJSON:
		return r.JSON(NewError(err.Error()))
	case FormatYAML:
		return r.YAML(NewError(err.Error()))
	default:
		_, werr := fmt.Fprintln(r.w, r.styles.bad.Render("Error:"), err)
		return werr
	}
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v interface{}) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func (r *Renderer) YAML(v interface{}) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Package render writes command results as json, yaml or a plain table.
//
// Without --format, a terminal gets a table and anything else gets JSON.
// An unknown --format value is an error. Tables never carry color codes;
// --no-color only affects TUI views.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/datablast/cli/tui"
)

// Format is an output format name.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

var writers = map[Format]func(io.Writer, any) error{
	FormatJSON:  writeJSON,
	FormatTable: writeTable,
	FormatYAML:  writeYAML,
}

// ParseFormat validates a --format value. The empty string is accepted
// and means "pick by terminal".
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if _, ok := writers[f]; ok || f == "" {
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
}

// Renderer writes results to one output in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer builds a renderer from the --format and --no-color flags,
// writing to the app's writer.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	out := io.Writer(os.Stdout)
	if c.App != nil && c.App.Writer != nil {
		out = c.App.Writer
	}
	if format == "" {
		format = FormatJSON
		if isTTY(out) {
			format = FormatTable
		}
	}
	return NewRendererWithWriter(format, c.Bool("no-color"), out), nil
}

// NewRendererWithWriter creates a renderer for an explicit format and writer.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format { return r.format }

// Render writes data in the renderer's format.
func (r *Renderer) Render(data any) error {
	write, ok := writers[r.format]
	if !ok {
		return fmt.Errorf("unknown format: %s", r.format)
	}
	return write(r.out, data)
}

// RenderTUI hands data to the interactive view registered for viewType.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	if r.noColor {
		tui.DisableColor()
	}
	return tui.Run(viewType, data)
}

func writeJSON(out io.Writer, data any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func writeYAML(out io.Writer, data any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

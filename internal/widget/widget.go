// Package widget renders the canonical statistics record into the static
// HTML card embedded in the district's public site. It is a pure consumer
// of the pipeline's output: no value flows back.
package widget

import (
	"bytes"
	_ "embed"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vchiuchiolo/district-stats/pkg/constants"
	"github.com/vchiuchiolo/district-stats/pkg/errors"
	"github.com/vchiuchiolo/district-stats/pkg/stats"
)

// FileName is the widget output file written under the output directory.
const FileName = "district_stats_widget.html"

//go:embed widget.tmpl
var widgetTemplate string

// grouping renders counts with thousands separators for display.
var grouping = message.NewPrinter(language.English)

// templateData is what the widget template renders.
type templateData struct {
	Stats   stats.CanonicalStats
	Updated string
}

// Renderer writes the HTML widget for a statistics record.
type Renderer struct {
	dir  string
	tmpl *template.Template
	now  func() time.Time
}

// NewRenderer creates a renderer writing into dir.
func NewRenderer(dir string) (*Renderer, error) {
	tmpl, err := template.New("widget").Funcs(template.FuncMap{
		"grouped": func(n int) string { return grouping.Sprintf("%d", n) },
	}).Parse(widgetTemplate)
	if err != nil {
		return nil, errors.WrapParse("template", "widget.tmpl", err)
	}
	return &Renderer{dir: dir, tmpl: tmpl, now: time.Now}, nil
}

// Present renders the record and writes the widget file. It implements
// the pipeline's Presenter interface.
func (r *Renderer) Present(record stats.CanonicalStats) error {
	data := templateData{
		Stats:   record,
		Updated: r.now().Format("January 2, 2006 at 3:04 PM"),
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return errors.WrapParse("template", "widget render", err)
	}

	if err := os.MkdirAll(r.dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", r.dir, err)
	}

	path := filepath.Join(r.dir, FileName)
	if err := os.WriteFile(path, buf.Bytes(), constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

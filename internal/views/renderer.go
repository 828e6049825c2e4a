package views

import (
	"embed"
	"errors"
	"html/template"
	"io"

	"github.com/gusesba/renova-web/internal/format"
	"github.com/gusesba/renova-web/internal/remote"
)

//go:embed templates/*.html templates/partials/*.html
var fs embed.FS

const partials = "templates/partials/*.html"

var funcs = template.FuncMap{
	"add":     func(a, b int) int { return a + b },
	"money":   format.Money,
	"shortID": format.ShortID,
	"seq": func(n int) []int {
		out := make([]int, max(n, 0))
		for i := range out {
			out[i] = i
		}
		return out
	},
	"sortIcon": func(d remote.Direction) string {
		switch d {
		case remote.Asc:
			return "▲"
		case remote.Desc:
			return "▼"
		}
		return "↕"
	},
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, errors.New("dict needs key/value pairs")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				return nil, errors.New("dict keys must be strings")
			}
			m[k] = kv[i+1]
		}
		return m, nil
	},
}

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes a full page: base.html wrapping the "content" block of page.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(fs, "templates/base.html", "templates/"+page, partials)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "base.html", data)
}

// RenderPartial writes one named template from templates/partials, the
// fragments htmx swaps into a page.
func (r *Renderer) RenderPartial(w io.Writer, name string, data any) error {
	tmpl, err := template.New(name).Funcs(funcs).ParseFS(fs, partials)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

package http

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"stock-forecast/pkg/utils"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"login.html", "register.html", "index.html"}

// TemplateRenderer renders each page on top of base.html.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

func NewTemplateRenderer(funcs template.FuncMap) (*TemplateRenderer, error) {
	r := &TemplateRenderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}

func (h *HttpAPIHandler) templateFuncs() template.FuncMap {
	loc := h.cfg.QuotaLocation()
	return template.FuncMap{
		"chartURL": h.chartURL,
		"formatPrice": func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		},
		"formatDate": func(t time.Time) string {
			return utils.PrettyDate(t, loc)
		},
	}
}

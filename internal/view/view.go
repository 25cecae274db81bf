// Package view renders the HTML pages from templates embedded in the
// binary.  Every page is parsed together with the shared layout.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-calendar/internal/calendar"
	"github.com/iliyamo/concert-calendar/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages lists the templates a handler may render by name.
var Pages = []string{
	"calendar.html",
	"concert_detail.html",
	"add_concert.html",
	"login.html",
	"register.html",
	"error.html",
}

// Page is the data every template receives.  Body holds the page-specific
// payload, the same value JSON clients get.
type Page struct {
	Title       string
	CurrentUser *model.User
	AuthEnabled bool
	Body        any
}

// Renderer implements echo.Renderer.
type Renderer struct {
	pages       map[string]*template.Template
	authEnabled bool
}

// New parses all pages.  authEnabled toggles the login/register links and
// the booker fields of the booking form.
func New(authEnabled bool) (*Renderer, error) {
	funcs := template.FuncMap{
		"money":    func(cents int64) string { return fmt.Sprintf("%d.%02d", cents/100, cents%100) },
		"datetime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
		"hhmm":     func(t time.Time) string { return t.UTC().Format("15:04") },
		"weekdays": func() [7]string { return calendar.WeekdayLabels },
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(Pages)), authEnabled: authEnabled}
	for _, name := range Pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the layout for the named page.  A Page value gets the
// deployment mode filled in; any other data is wrapped in a Page.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	p, ok := data.(Page)
	if !ok {
		p = Page{Body: data}
	}
	p.AuthEnabled = r.authEnabled
	return t.ExecuteTemplate(w, "layout", p)
}

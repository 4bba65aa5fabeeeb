package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/jonathan/job-dashboard/internal/logger"
	"github.com/jonathan/job-dashboard/internal/view"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Shared templates parsed into every page.
var sharedTemplates = []string{"templates/layout.tmpl", "templates/partials.tmpl"}

// Page templates, one per page shell.
var pageTemplates = []string{
	"dashboard", "job", "new_job", "search", "settings", "login",
}

// renderer holds one template set per page.
type renderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"statusBadge":   view.StatusBadge,
	"statusTitle":   view.StatusTitle,
	"roleLabel":     view.RoleLabel,
	"formatDate":    view.FormatDate,
	"noteType":      view.NoteType,
	"priorityLabel": view.PriorityLabel,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"lower": strings.ToLower,
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		files := append([]string{"templates/" + name + ".tmpl"}, sharedTemplates...)
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
		r.pages[name] = t
	}
	return r, nil
}

// pageData is the data every page shell receives.
type pageData struct {
	Title  string
	Nav    string
	Bypass bool
	Flash  string
	Data   any
}

// render executes a page (or one of its named blocks) into w. The output is
// buffered so a template error never produces a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, block string, data any) {
	t, ok := s.pages.pages[page]
	if !ok {
		s.renderError(w, r, errors.Newf("unknown page %q", page))
		return
	}
	if block == "" {
		block = "layout"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Errorw("failed to render page", logger.FieldPath, r.URL.Path, logger.FieldError, err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.NotFoundHandler()
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func isStatic(p string) bool {
	return strings.HasPrefix(path.Clean(p), "/static/")
}

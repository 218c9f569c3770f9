package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/ghaggin/coursedesk/internal/app"
	"github.com/ghaggin/coursedesk/internal/auth"
	"github.com/ghaggin/coursedesk/internal/view"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed tmpl/*.html
var templateFS embed.FS

var pages = map[view.Screen]string{
	view.ScreenLogin:           "login.html",
	view.ScreenRegister:        "login.html",
	view.ScreenLoading:         "loading.html",
	view.ScreenError:           "error.html",
	view.ScreenCourseList:      "courses.html",
	view.ScreenModuleList:      "modules.html",
	view.ScreenAuthorWorkspace: "workspace.html",
}

type templateData struct {
	PageTitle string
	Flash     *Flash
	app.Snapshot
}

func (td *templateData) SignedIn() bool {
	return td.Auth.State == auth.StateAuthenticated
}

func (td *templateData) Registering() bool {
	return td.Auth.Mode == auth.ModeRegister
}

func (td *templateData) AuthFailed() bool {
	return td.Auth.State == auth.StateError
}

func (td *templateData) IsSelected(courseID int) bool {
	return td.Catalog.Selected != nil && td.Catalog.Selected.ID == courseID
}

type renderer struct {
	md    goldmark.Markdown
	pages map[view.Screen]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{
		// raw HTML in module content is omitted; WithUnsafe stays off
		md: goldmark.New(
			goldmark.WithRendererOptions(
				goldmarkHTML.WithHardWraps(),
			),
		),
		pages: map[view.Screen]*template.Template{},
	}

	funcs := template.FuncMap{
		"markdown": r.markdown,
	}

	for screen, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS,
			"tmpl/"+page,
			"tmpl/base.html",
		)
		if err != nil {
			return nil, err
		}
		r.pages[screen] = t
	}
	return r, nil
}

func (r *renderer) markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (r *renderer) render(w http.ResponseWriter, td *templateData) error {
	t, ok := r.pages[td.Screen]
	if !ok {
		t = r.pages[view.ScreenLogin]
	}
	if td.PageTitle == "" {
		td.PageTitle = strings.ReplaceAll(string(td.Screen), "-", " ")
	}

	buf := &bytes.Buffer{}
	if err := t.ExecuteTemplate(buf, "base.html", td); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

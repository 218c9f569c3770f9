package shell

import (
	"fmt"
	"strings"

	"github.com/ghaggin/coursedesk/internal/app"
	"github.com/ghaggin/coursedesk/internal/model"
	"github.com/ghaggin/coursedesk/internal/view"
)

func (s *Shell) show() {
	fmt.Fprint(s.out, Render(s.desk.Snapshot()))
}

// Render prints a snapshot as the screen it routes to.
func Render(snap app.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "== %s ==\n", snap.Screen)

	switch snap.Screen {
	case view.ScreenLogin, view.ScreenRegister:
		if snap.Auth.Message != "" {
			fmt.Fprintln(&b, snap.Auth.Message)
		}
		if snap.Screen == view.ScreenRegister {
			fmt.Fprintln(&b, "register <username> <email> <password> [student|instructor], or mode to log in")
		} else {
			fmt.Fprintln(&b, "login <username> <password>, or mode to register")
		}

	case view.ScreenLoading:
		fmt.Fprintln(&b, "Loading...")

	case view.ScreenError:
		fmt.Fprintln(&b, snap.Error())
		fmt.Fprintln(&b, "courses to retry, back to return to the list")

	case view.ScreenCourseList:
		writeCourses(&b, snap.Catalog.Courses, nil)

	case view.ScreenModuleList:
		if c := snap.Catalog.Selected; c != nil {
			fmt.Fprintf(&b, "%s\n%s\n\n", c.Title, c.Description)
		}
		writeModules(&b, snap.Modules.Modules, "No modules available for this course.")
		fmt.Fprintln(&b, "back to return to the course list")

	case view.ScreenAuthorWorkspace:
		writeNotice(&b, snap.Catalog.Notice.Text)
		writeCourses(&b, snap.Catalog.Courses, snap.Catalog.Selected)
		if c := snap.Catalog.Selected; c != nil {
			fmt.Fprintf(&b, "\nModules for %s:\n", c.Title)
			writeNotice(&b, snap.Modules.Notice.Text)
			writeModules(&b, snap.Modules.Modules, "No modules yet.")
			if d := snap.Modules.Draft; !d.Empty() {
				fmt.Fprintf(&b, "draft: %s | %s | %s\n", d.Title, d.Description, d.Content)
			}
		}
		if d := snap.Catalog.Draft; !d.Empty() {
			fmt.Fprintf(&b, "course draft: %s | %s\n", d.Title, d.Description)
		}
	}

	return b.String()
}

func writeNotice(b *strings.Builder, text string) {
	if text != "" {
		fmt.Fprintf(b, "* %s\n", text)
	}
}

func writeCourses(b *strings.Builder, courses []model.Course, selected *model.Course) {
	if len(courses) == 0 {
		fmt.Fprintln(b, "No courses available.")
		return
	}
	for _, c := range courses {
		mark := " "
		if selected != nil && selected.ID == c.ID {
			mark = ">"
		}
		fmt.Fprintf(b, "%s [%d] %s - %s\n", mark, c.ID, c.Title, c.Description)
	}
}

func writeModules(b *strings.Builder, modules []model.Module, empty string) {
	if len(modules) == 0 {
		fmt.Fprintln(b, empty)
		return
	}
	for i, m := range modules {
		fmt.Fprintf(b, "%d. %s - %s\n", i+1, m.Title, m.Description)
		if m.Content != "" {
			for _, line := range strings.Split(m.Content, "\n") {
				fmt.Fprintf(b, "     %s\n", line)
			}
		}
	}
}

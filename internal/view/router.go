// Package view decides which screen the current state shows.
package view

import (
	"github.com/ghaggin/coursedesk/internal/auth"
	"github.com/ghaggin/coursedesk/internal/model"
)

type Screen string

const (
	ScreenLogin           Screen = "login"
	ScreenRegister        Screen = "register"
	ScreenLoading         Screen = "loading"
	ScreenError           Screen = "error"
	ScreenCourseList      Screen = "course-list"
	ScreenModuleList      Screen = "module-list"
	ScreenAuthorWorkspace Screen = "author-workspace"
)

type State struct {
	Auth     auth.Status
	Role     model.Role
	Selected bool
	Loading  bool
	Error    string
}

// Route maps state to a screen. Loading wins over an error and an error wins
// over content, as on the signed-in pages.
func Route(s State) Screen {
	if s.Auth.State != auth.StateAuthenticated {
		if s.Auth.Mode == auth.ModeRegister {
			return ScreenRegister
		}
		return ScreenLogin
	}

	switch {
	case s.Loading:
		return ScreenLoading
	case s.Error != "":
		return ScreenError
	}

	switch s.Role {
	case model.RoleAuthor:
		return ScreenAuthorWorkspace
	case model.RoleLearner:
		if s.Selected {
			return ScreenModuleList
		}
		return ScreenCourseList
	}

	// authenticated without a usable role
	return ScreenLogin
}

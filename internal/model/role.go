package model

import (
	"fmt"
	"strings"
)

type Role int

const (
	RoleNone Role = iota
	RoleLearner
	RoleAuthor
)

// ParseRole accepts the backend's wire names as well as the client's own.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student", "learner":
		return RoleLearner, nil
	case "instructor", "author":
		return RoleAuthor, nil
	}
	return RoleNone, fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	return r == RoleLearner || r == RoleAuthor
}

// CanAuthor reports whether the role may create courses and modules.
func (r Role) CanAuthor() bool {
	return r == RoleAuthor
}

// Wire is the name the backend uses for the role.
func (r Role) Wire() string {
	switch r {
	case RoleLearner:
		return "student"
	case RoleAuthor:
		return "instructor"
	}
	return ""
}

func (r Role) String() string {
	switch r {
	case RoleLearner:
		return "learner"
	case RoleAuthor:
		return "author"
	}
	return "none"
}

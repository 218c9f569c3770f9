package model

type Course struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Module belongs to a course. ID is nil for a module that has not been
// submitted yet.
type Module struct {
	ID          *int   `json:"id,omitempty"`
	CourseID    int    `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
}

// CourseDraft is the unsubmitted course form.
type CourseDraft struct {
	Title       string
	Description string
}

func (d CourseDraft) Empty() bool {
	return d == CourseDraft{}
}

// ModuleDraft is the unsubmitted module form.
type ModuleDraft struct {
	Title       string
	Description string
	Content     string
}

func (d ModuleDraft) Empty() bool {
	return d == ModuleDraft{}
}

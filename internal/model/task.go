package model

// ContentType identifies the kind of course artifact a task fetches.
type ContentType string

// Known content types.
const (
	Modules       ContentType = "modules"
	Assignments   ContentType = "assignments"
	Announcements ContentType = "announcements"
	Discussions   ContentType = "discussions"
	Quizzes       ContentType = "quizzes"
	Grades        ContentType = "grades"
	Files         ContentType = "files"
	People        ContentType = "people"
	Chat          ContentType = "chat"
)

// defaultPriorities orders content types for scheduling. Lower runs first;
// modules go before everything else because they lay down the folder
// structure later groups file into.
var defaultPriorities = map[ContentType]int{
	Modules:       1,
	Assignments:   2,
	Announcements: 3,
	Discussions:   4,
	Quizzes:       5,
	Grades:        6,
	Files:         7,
	People:        8,
	Chat:          9,
}

// Valid reports whether ct is a known content type.
func (ct ContentType) Valid() bool {
	_, ok := defaultPriorities[ct]
	return ok
}

// DefaultPriority returns the scheduling priority for the content type.
// Unknown types sort after all known ones.
func (ct ContentType) DefaultPriority() int {
	if p, ok := defaultPriorities[ct]; ok {
		return p
	}
	return len(defaultPriorities) + 1
}

// Task describes one artifact to mirror.
type Task struct {
	ID          string      `json:"id,omitempty"`
	ContentType ContentType `json:"content_type"`

	// Priority overrides the content type default when positive.
	Priority int `json:"priority,omitempty"`

	// SourceRef locates the artifact: an absolute URL or a path resolved
	// against the API base URL.
	SourceRef string `json:"source_ref"`

	// Name is the display name the artifact is filed under.
	Name string `json:"name,omitempty"`

	// Number is the artifact's ordinal within its content type.
	Number int `json:"number,omitempty"`

	CourseCode string `json:"course_code,omitempty"`
	CourseName string `json:"course_name,omitempty"`
	Semester   string `json:"semester,omitempty"`
	Year       string `json:"year,omitempty"`

	// ExpectedSize is the artifact size in bytes, or <= 0 when unknown.
	ExpectedSize int64 `json:"expected_size,omitempty"`

	// Attempts counts fetch attempts started for this task. Written only
	// by the goroutine executing the task.
	Attempts int `json:"-"`
}

// EffectivePriority returns the task priority, falling back to the content
// type default when unset.
func (t *Task) EffectivePriority() int {
	if t.Priority > 0 {
		return t.Priority
	}
	return t.ContentType.DefaultPriority()
}

// SizeKnown reports whether the task carries an expected artifact size.
func (t *Task) SizeKnown() bool {
	return t.ExpectedSize > 0
}

package layout

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/minervarr/CanvasDownloader/internal/model"
)

// Default templates.
const (
	DefaultFolderTemplate = "{year}/{semester} Semester/{course_code}-{course_name}"
	DefaultFilePattern    = "{type}_{number}_{name}"
)

// Fallback literals substituted when a task omits a folder template field.
const (
	UnknownYear     = "Unknown_Year"
	UnknownSemester = "Unknown_Semester"
	UnknownCode     = "UNKNOWN"
	UnknownCourse   = "Unknown_Course"
)

// Options configures path resolution.
type Options struct {
	// FolderTemplate lays out the course folder below the mirror root.
	// Placeholders: {year}, {semester}, {course_code}, {course_name}.
	// Default: DefaultFolderTemplate
	FolderTemplate string

	// FilePattern names artifacts inside a content type folder.
	// Placeholders: {type}, {number}, {name}.
	// Default: DefaultFilePattern
	FilePattern string

	// NumberWidth zero-pads {number}.
	// Default: 3
	NumberWidth int

	// MaxNameLength bounds each path segment, in characters.
	// Default: 100
	MaxNameLength int

	// MaxDepth bounds the number of path segments below the root.
	// Default: 10
	MaxDepth int
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		FolderTemplate: DefaultFolderTemplate,
		FilePattern:    DefaultFilePattern,
		NumberWidth:    3,
		MaxNameLength:  100,
		MaxDepth:       10,
	}
}

// Path is a resolved artifact location below the mirror root.
type Path struct {
	Dir  string // folder key, forward-slash separated
	File string // file name within Dir
}

// Key returns the full object key.
func (p Path) Key() string {
	if p.Dir == "" {
		return p.File
	}
	return p.Dir + "/" + p.File
}

// ResolutionError reports a task whose metadata cannot produce a usable key.
// The failure is local to the task.
type ResolutionError struct {
	TaskID string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("layout: task %s: %s", e.TaskID, e.Reason)
}

// Resolver turns tasks into filesystem-safe object keys.
type Resolver struct {
	opts Options
}

// NewResolver creates a resolver with the given options. Zero fields take
// their defaults.
func NewResolver(opts Options) *Resolver {
	if opts.FolderTemplate == "" {
		opts.FolderTemplate = DefaultFolderTemplate
	}
	if opts.FilePattern == "" {
		opts.FilePattern = DefaultFilePattern
	}
	if opts.NumberWidth <= 0 {
		opts.NumberWidth = 3
	}
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = 100
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 10
	}
	return &Resolver{opts: opts}
}

// Resolve computes the destination for a task.
func (r *Resolver) Resolve(t *model.Task) (Path, error) {
	dir := r.renderFolder(t)

	file, err := r.renderFile(t)
	if err != nil {
		return Path{}, err
	}

	depth := 1
	if dir != "" {
		depth += strings.Count(dir, "/") + 1
	}
	if depth > r.opts.MaxDepth {
		return Path{}, &ResolutionError{
			TaskID: t.ID,
			Reason: fmt.Sprintf("path depth %d exceeds limit %d", depth, r.opts.MaxDepth),
		}
	}

	return Path{Dir: dir, File: file}, nil
}

// renderFolder builds the folder key: the rendered course folder template
// plus the content type segment. Empty segments are dropped.
func (r *Resolver) renderFolder(t *model.Task) string {
	rep := strings.NewReplacer(
		"{year}", Sanitize(fallback(t.Year, UnknownYear)),
		"{semester}", Sanitize(fallback(t.Semester, UnknownSemester)),
		"{course_code}", Sanitize(fallback(t.CourseCode, UnknownCode)),
		"{course_name}", Sanitize(fallback(t.CourseName, UnknownCourse)),
	)
	rendered := rep.Replace(r.opts.FolderTemplate)

	var segments []string
	for _, seg := range strings.Split(rendered, "/") {
		seg = Truncate(Sanitize(seg), r.opts.MaxNameLength)
		if seg == "" {
			continue
		}
		segments = append(segments, seg)
	}
	segments = append(segments, string(t.ContentType))

	return strings.Join(segments, "/")
}

// renderFile builds the file name from the file pattern, preserving the
// artifact extension through sanitization and truncation.
func (r *Resolver) renderFile(t *model.Task) (string, error) {
	name := t.Name
	ext := extension(t)
	name = strings.TrimSuffix(name, ext)

	rep := strings.NewReplacer(
		"{type}", string(t.ContentType),
		"{number}", fmt.Sprintf("%0*d", r.opts.NumberWidth, t.Number),
		"{name}", Sanitize(name),
	)
	stem := Sanitize(rep.Replace(r.opts.FilePattern))

	if stem == "" {
		return "", &ResolutionError{TaskID: t.ID, Reason: "empty file name after sanitizing"}
	}

	maxStem := r.opts.MaxNameLength - utf8.RuneCountInString(ext)
	if maxStem < 1 {
		maxStem = 1
	}
	return Truncate(stem, maxStem) + ext, nil
}

// extension picks the artifact extension from the display name, falling
// back to the source ref's URL path.
func extension(t *model.Task) string {
	if ext := path.Ext(t.Name); validExt(ext) {
		return ext
	}
	if u, err := url.Parse(t.SourceRef); err == nil {
		if ext := path.Ext(u.Path); validExt(ext) {
			return ext
		}
	}
	return ""
}

// validExt accepts short alphanumeric extensions like ".pdf" or ".tar".
func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 11 {
		return false
	}
	for _, r := range ext[1:] {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func fallback(value, literal string) string {
	if strings.TrimSpace(value) == "" {
		return literal
	}
	return value
}

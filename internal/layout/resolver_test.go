package layout

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/minervarr/CanvasDownloader/internal/model"
)

func testTask() model.Task {
	return model.Task{
		ID:          "t1",
		ContentType: model.Files,
		SourceRef:   "/files/1042/download",
		Name:        "syllabus.pdf",
		Number:      1,
		CourseCode:  "CS101",
		CourseName:  "Intro to Computing",
		Semester:    "First",
		Year:        "2026",
	}
}

func TestResolveDefaultLayout(t *testing.T) {
	r := NewResolver(DefaultOptions())
	task := testTask()

	p, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := "2026/First Semester/CS101-Intro to Computing/files/files_001_syllabus.pdf"
	if p.Key() != want {
		t.Errorf("Key() = %q, want %q", p.Key(), want)
	}
	if p.Dir != "2026/First Semester/CS101-Intro to Computing/files" {
		t.Errorf("Dir = %q", p.Dir)
	}
	if p.File != "files_001_syllabus.pdf" {
		t.Errorf("File = %q", p.File)
	}
}

func TestResolveFallbackLiterals(t *testing.T) {
	r := NewResolver(DefaultOptions())
	task := model.Task{
		ID:          "t2",
		ContentType: model.Assignments,
		SourceRef:   "/assignments/7",
		Name:        "homework.docx",
		Number:      7,
	}

	p, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := "Unknown_Year/Unknown_Semester Semester/UNKNOWN-Unknown_Course/assignments/assignments_007_homework.docx"
	if p.Key() != want {
		t.Errorf("Key() = %q, want %q", p.Key(), want)
	}
}

func TestResolveSanitizesFields(t *testing.T) {
	r := NewResolver(DefaultOptions())
	task := testTask()
	task.CourseName = "Systems/Networks: Part 1"
	task.Name = `lecture "one"?.pdf`

	p, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !strings.Contains(p.Dir, "CS101-Systems-Networks- Part 1") {
		t.Errorf("Dir = %q, field separators should not add depth", p.Dir)
	}
	if strings.Count(p.Dir, "/") != 3 {
		t.Errorf("Dir = %q, want exactly 4 segments", p.Dir)
	}
	if p.File != "files_001_lecture 'one'.pdf" {
		t.Errorf("File = %q", p.File)
	}
}

func TestResolveReservedCourseCode(t *testing.T) {
	r := NewResolver(DefaultOptions())
	task := testTask()
	task.CourseCode = "CON"

	p, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(p.Dir, "_CON-Intro to Computing") {
		t.Errorf("Dir = %q, want reserved code prefixed", p.Dir)
	}
}

func TestResolveExtensionFromSourceRef(t *testing.T) {
	r := NewResolver(DefaultOptions())
	task := testTask()
	task.Name = "Lecture Notes"
	task.Number = 2
	task.SourceRef = "https://canvas.example.edu/files/9/notes.pdf?verifier=abc"

	p, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.File != "files_002_Lecture Notes.pdf" {
		t.Errorf("File = %q, want extension recovered from source ref", p.File)
	}
}

func TestResolveNoExtension(t *testing.T) {
	r := NewResolver(DefaultOptions())
	task := testTask()
	task.Name = "README"
	task.SourceRef = "/files/3/download"

	p, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.File != "files_001_README" {
		t.Errorf("File = %q, want no extension", p.File)
	}
}

func TestResolveTruncationPreservesExtension(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNameLength = 30
	r := NewResolver(opts)

	task := testTask()
	task.Name = strings.Repeat("long name ", 20) + ".pdf"

	p, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasSuffix(p.File, ".pdf") {
		t.Errorf("File = %q, want .pdf suffix preserved", p.File)
	}
	if n := utf8.RuneCountInString(p.File); n > 30 {
		t.Errorf("File length = %d, want <= 30", n)
	}
	if !strings.HasPrefix(p.File, "files_001_") {
		t.Errorf("File = %q, want pattern prefix kept", p.File)
	}
}

func TestResolveEmptyStem(t *testing.T) {
	opts := DefaultOptions()
	opts.FilePattern = "{name}"
	r := NewResolver(opts)

	task := testTask()
	task.Name = "???"
	task.SourceRef = "/files/3/download"

	_, err := r.Resolve(&task)
	if err == nil {
		t.Fatal("expected error for empty stem")
	}

	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %T", err)
	}
	if resErr.TaskID != "t1" {
		t.Errorf("TaskID = %q, want t1", resErr.TaskID)
	}
	if !strings.Contains(resErr.Reason, "empty file name") {
		t.Errorf("Reason = %q", resErr.Reason)
	}
}

func TestResolveDepthExceeded(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 3
	r := NewResolver(opts)

	task := testTask()

	_, err := r.Resolve(&task)
	if err == nil {
		t.Fatal("expected error for exceeded depth")
	}

	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %T", err)
	}
	if !strings.Contains(resErr.Reason, "depth") {
		t.Errorf("Reason = %q", resErr.Reason)
	}
}

func TestResolveCustomTemplates(t *testing.T) {
	opts := Options{
		FolderTemplate: "{course_code}",
		FilePattern:    "{number}-{name}",
		NumberWidth:    5,
	}
	r := NewResolver(opts)

	task := testTask()
	task.Number = 7

	p, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := "CS101/files/00007-syllabus.pdf"
	if p.Key() != want {
		t.Errorf("Key() = %q, want %q", p.Key(), want)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := NewResolver(DefaultOptions())
	task := testTask()

	first, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve(&task)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first.Key() != second.Key() {
		t.Errorf("resolution not deterministic: %q vs %q", first.Key(), second.Key())
	}
}

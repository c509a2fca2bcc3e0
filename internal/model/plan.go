package model

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// LoadPlan reads a JSON task plan and validates it. Tasks without an ID get
// a generated one; duplicate IDs and unknown content types are rejected.
func LoadPlan(r io.Reader) ([]Task, error) {
	var tasks []Task
	if err := json.NewDecoder(r).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	seen := make(map[string]int, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if t.SourceRef == "" {
			return nil, fmt.Errorf("plan: task %d: source_ref is required", i)
		}
		if !t.ContentType.Valid() {
			return nil, fmt.Errorf("plan: task %d: unknown content type %q", i, t.ContentType)
		}
		if t.Priority < 0 {
			return nil, fmt.Errorf("plan: task %d: priority must not be negative", i)
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if prev, ok := seen[t.ID]; ok {
			return nil, fmt.Errorf("plan: task %d: duplicate id %q (first used by task %d)", i, t.ID, prev)
		}
		seen[t.ID] = i
	}

	return tasks, nil
}

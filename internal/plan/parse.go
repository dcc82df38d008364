package plan

import (
	"encoding/json"
	"fmt"
)

// StructuralError reports parsed JSON that does not match the required plan
// shape. The revision protocol downgrades it to a clarification message; the
// generation pipeline treats it as fatal.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "structural validation failed: " + e.Reason
}

// ParseTasks decodes a stage-1 or stage-2 extraction payload. The payload
// must be an object with a tasks array.
func ParseTasks(data []byte) ([]Task, error) {
	var payload struct {
		Tasks *[]Task `json:"tasks"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding tasks: %w", err)
	}
	if payload.Tasks == nil {
		return nil, &StructuralError{Reason: "missing tasks array"}
	}
	if len(*payload.Tasks) == 0 {
		return nil, &StructuralError{Reason: "empty tasks array"}
	}
	for i, t := range *payload.Tasks {
		if t.TaskID == "" {
			return nil, &StructuralError{Reason: fmt.Sprintf("tasks[%d] missing taskId", i)}
		}
	}
	return *payload.Tasks, nil
}

// ParseFinalPlan decodes a staffing-line payload and enforces the line-level
// invariants: a tasks array must be present, and every line needs a taskId, an
// lcat, and a non-negative numeric hours value.
func ParseFinalPlan(data []byte) (FinalPlan, error) {
	var payload struct {
		Tasks *[]struct {
			TaskID        string   `json:"taskId"`
			LCAT          string   `json:"lcat"`
			Hours         *float64 `json:"hours"`
			MathRationale string   `json:"mathRationale"`
			Basis         string   `json:"basis"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return FinalPlan{}, fmt.Errorf("decoding staffing lines: %w", err)
	}
	if payload.Tasks == nil {
		return FinalPlan{}, &StructuralError{Reason: "missing tasks array"}
	}
	if len(*payload.Tasks) == 0 {
		return FinalPlan{}, &StructuralError{Reason: "empty tasks array"}
	}

	out := FinalPlan{Tasks: make([]StaffingLine, 0, len(*payload.Tasks))}
	for i, line := range *payload.Tasks {
		switch {
		case line.TaskID == "":
			return FinalPlan{}, &StructuralError{Reason: fmt.Sprintf("tasks[%d] missing taskId", i)}
		case line.LCAT == "":
			return FinalPlan{}, &StructuralError{Reason: fmt.Sprintf("tasks[%d] missing lcat", i)}
		case line.Hours == nil:
			return FinalPlan{}, &StructuralError{Reason: fmt.Sprintf("tasks[%d] missing hours", i)}
		case *line.Hours < 0:
			return FinalPlan{}, &StructuralError{Reason: fmt.Sprintf("tasks[%d] has negative hours", i)}
		}
		out.Tasks = append(out.Tasks, StaffingLine{
			TaskID:        line.TaskID,
			LCAT:          line.LCAT,
			Hours:         *line.Hours,
			MathRationale: line.MathRationale,
			Basis:         line.Basis,
		})
	}
	return out, nil
}

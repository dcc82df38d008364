// Package plan defines the staffing plan data model shared by the generation
// pipeline, the revision protocol, and persistence.
package plan

import (
	"encoding/json"
	"time"
)

// Task is a unit of work decomposed from the RFP. Produced by stage 1 of the
// generation pipeline and enriched with labor categories in stage 2; immutable
// afterwards. RecommendedLCATs is populated only when the task has no subtasks,
// otherwise the subtasks carry the assignment.
type Task struct {
	TaskID           string    `json:"taskId"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	SubTasks         []SubTask `json:"subTasks,omitempty"`
	RecommendedLCATs []string  `json:"recommendedLCATs,omitempty"`
}

// SubTask is decomposable sub-work under a Task. Once a subtask exists, it —
// not the parent — carries the labor category assignment and the eventual
// hours line.
type SubTask struct {
	SubTaskID        string   `json:"subTaskId"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	RecommendedLCATs []string `json:"recommendedLCATs,omitempty"`
}

// StaffingLine is one (task-or-subtask, labor category) pair in the final
// plan. MathRationale must spell out the hours derivation, e.g.
// "250 tickets × 0.5 hr = 125 hr".
type StaffingLine struct {
	TaskID        string  `json:"taskId"`
	LCAT          string  `json:"lcat"`
	Hours         float64 `json:"hours"`
	MathRationale string  `json:"mathRationale"`
	Basis         string  `json:"basis"`
}

// FinalPlan is the hours-level output of the pipeline. It is only ever
// replaced wholesale, never edited line by line.
type FinalPlan struct {
	Tasks []StaffingLine `json:"tasks"`
}

// TotalHours sums the hours across all staffing lines.
func (p FinalPlan) TotalHours() float64 {
	var total float64
	for _, line := range p.Tasks {
		total += line.Hours
	}
	return total
}

// StaffingPlan is the persisted aggregate, created once per uploaded document.
// Chat messages reference it by ID and are deleted with it.
type StaffingPlan struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	OwnerID    string    `json:"ownerId,omitempty"`
	RFPText    string    `json:"rfpText"`
	Step1Tasks []Task    `json:"step1Tasks"`
	Step2Tasks []Task    `json:"step2TasksWithLCATs"`
	Final      FinalPlan `json:"finalStaffingPlan"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the revision conversation for a plan.
// Append-only, ordered by creation time.
type ChatMessage struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	PlanID    string    `json:"staffingPlanId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
}

// Clone returns a deep copy of the plan so callers can build a replacement
// without mutating the original.
func (p StaffingPlan) Clone() StaffingPlan {
	out := p
	out.Step1Tasks = cloneTasks(p.Step1Tasks)
	out.Step2Tasks = cloneTasks(p.Step2Tasks)
	out.Final.Tasks = append([]StaffingLine(nil), p.Final.Tasks...)
	return out
}

func cloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t
		out[i].SubTasks = append([]SubTask(nil), t.SubTasks...)
		out[i].RecommendedLCATs = append([]string(nil), t.RecommendedLCATs...)
	}
	return out
}

// MarshalSnapshot renders only the staffing-line view of the plan, dropping
// the heavier step1/step2 payloads. Used when embedding the current plan into
// a revision prompt.
func (p StaffingPlan) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(struct {
		Tasks []StaffingLine `json:"tasks"`
	}{Tasks: p.Final.Tasks})
}

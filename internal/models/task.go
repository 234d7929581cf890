package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

type TaskPriority string

const (
	PrioritySooner     TaskPriority = "sooner"
	PriorityLater      TaskPriority = "later"
	PriorityMaybeNever TaskPriority = "maybe never"
)

// Rank orders priorities sooner < later < maybe never. Unknown priorities rank last.
func (p TaskPriority) Rank() int {
	switch p {
	case PrioritySooner:
		return 0
	case PriorityLater:
		return 1
	case PriorityMaybeNever:
		return 2
	default:
		return 3
	}
}

// Valid reports whether p is one of the fixed priorities.
func (p TaskPriority) Valid() bool {
	return p.Rank() < 3
}

type TaskStatus string

const (
	TaskStatusCreated  TaskStatus = "created"
	TaskStatusDone     TaskStatus = "done"
	TaskStatusArchived TaskStatus = "archived"
)

// Reserved task JSON keys. Anything else a caller sends is kept in Extra.
const (
	TaskFieldID          = "id"
	TaskFieldDescription = "description"
	TaskFieldPriority    = "priority"
	TaskFieldStatus      = "status"
	TaskFieldCreatedAt   = "createdAt"
	TaskFieldUpdatedAt   = "updatedAt"
)

// IsReservedTaskField reports whether key maps to a Task struct field.
func IsReservedTaskField(key string) bool {
	switch key {
	case TaskFieldID, TaskFieldDescription, TaskFieldPriority,
		TaskFieldStatus, TaskFieldCreatedAt, TaskFieldUpdatedAt:
		return true
	}
	return false
}

type Task struct {
	ID          string         `gorm:"primarykey;type:varchar(64)"`
	UserID      string         `gorm:"type:varchar(64);not null;index"`
	Position    int64          `gorm:"not null;default:0"`
	Description string         `gorm:"type:text"`
	Priority    TaskPriority   `gorm:"type:varchar(32)"`
	Status      TaskStatus     `gorm:"type:varchar(32);not null;default:'created'"`
	CreatedAt   string         `gorm:"type:varchar(64);autoCreateTime:false"`
	UpdatedAt   string         `gorm:"type:varchar(64);autoUpdateTime:false"`
	Extra       map[string]any `gorm:"type:text;serializer:json"`
}

// Fields flattens the task into a single JSON object: extra fields first,
// then the reserved fields, which always win.
func (t Task) Fields() map[string]any {
	out := make(map[string]any, len(t.Extra)+6)
	for k, v := range t.Extra {
		if IsReservedTaskField(k) {
			continue
		}
		out[k] = v
	}
	out[TaskFieldID] = t.ID
	out[TaskFieldDescription] = t.Description
	out[TaskFieldPriority] = string(t.Priority)
	out[TaskFieldStatus] = string(t.Status)
	out[TaskFieldCreatedAt] = t.CreatedAt
	out[TaskFieldUpdatedAt] = t.UpdatedAt
	return out
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Fields())
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var decoded Task
	for k, v := range raw {
		if !IsReservedTaskField(k) {
			if decoded.Extra == nil {
				decoded.Extra = make(map[string]any)
			}
			decoded.Extra[k] = v
			continue
		}
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("task field %q must be a string", k)
		}
		switch k {
		case TaskFieldID:
			decoded.ID = s
		case TaskFieldDescription:
			decoded.Description = s
		case TaskFieldPriority:
			decoded.Priority = TaskPriority(s)
		case TaskFieldStatus:
			decoded.Status = TaskStatus(s)
		case TaskFieldCreatedAt:
			decoded.CreatedAt = s
		case TaskFieldUpdatedAt:
			decoded.UpdatedAt = s
		}
	}

	// UserID and Position are not part of the JSON form.
	decoded.UserID = t.UserID
	decoded.Position = t.Position
	*t = decoded
	return nil
}

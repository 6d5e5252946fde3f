package models

import (
	"time"
)

// InstanceStatus represents the lifecycle state of a procedure instance.
type InstanceStatus string

const (
	InstanceStatusNotStarted InstanceStatus = "not_started"
	InstanceStatusInProgress InstanceStatus = "in_progress"
	InstanceStatusCompleted  InstanceStatus = "completed"
)

// ProcedureInstance is one concrete run of a procedure against a target
// entity. The instance owns a snapshot of the action list taken at creation
// time, so later edits to the live procedure never alter a running instance.
type ProcedureInstance struct {
	ID             string         `json:"id" db:"id"`
	ProcedureID    string         `json:"procedure_id" db:"procedure_id"`
	TenantID       string         `json:"tenant_id" db:"tenant_id"`
	TargetEntityID string         `json:"target_entity_id" db:"target_entity_id"`
	StartDate      time.Time      `json:"start_date" db:"start_date"`
	DueDate        *time.Time     `json:"due_date,omitempty" db:"due_date"`
	Status         InstanceStatus `json:"status" db:"status"`
}

// InstanceAction is an immutable snapshot of one action, scoped to an
// instance. Order is the flat position in the (process.order, action.order)
// sequence of the source procedure. Done is flipped by the external execution
// tracker through the engine.
type InstanceAction struct {
	ID           string `json:"id" db:"id"`
	InstanceID   string `json:"instance_id" db:"instance_id"`
	ActionID     string `json:"action_id" db:"action_id"`
	ProcessName  string `json:"process_name" db:"process_name"`
	Name         string `json:"name" db:"name"`
	Instructions string `json:"instructions" db:"instructions"`
	Order        int    `json:"order" db:"ord"`
	Done         bool   `json:"done" db:"done"`
}

// Assignment binds exactly one snapshotted action to one user within an
// instance.
type Assignment struct {
	ID               string `json:"id" db:"id"`
	InstanceID       string `json:"instance_id" db:"instance_id"`
	InstanceActionID string `json:"instance_action_id" db:"instance_action_id"`
	AssignedUserID   string `json:"assigned_user_id" db:"assigned_user_id"`
}

// TeamMember is one distinct assignee of an instance, enriched with display
// attributes from the directory.
type TeamMember struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// InstanceSummary is the archive-view projection of an instance.
// TargetEntityName is filled from the entity registry, not stored.
type InstanceSummary struct {
	ID               string         `json:"id" db:"id"`
	ProcedureName    string         `json:"procedure_name" db:"procedure_name"`
	TargetEntityID   string         `json:"target_entity_id" db:"target_entity_id"`
	TargetEntityName string         `json:"target_entity_name"`
	StartDate        time.Time      `json:"start_date" db:"start_date"`
	DueDate          *time.Time     `json:"due_date,omitempty" db:"due_date"`
	Status           InstanceStatus `json:"status" db:"status"`
}

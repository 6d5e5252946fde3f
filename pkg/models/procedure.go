// Package models defines the domain models for the PPA service: the
// procedure catalog, its instances and their assignments.
package models

import (
	"time"
)

// ProcedureTemplate is an organization-wide standard procedure. Templates are
// reference data: created by system configuration, never mutated by tenant
// operations.
type ProcedureTemplate struct {
	ID          string    `json:"id" db:"id"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Procedure is a tenant-owned, customized procedure derived from a template.
// The template back-reference is weak: lookup only, no ownership.
type Procedure struct {
	ID         string    `json:"id" db:"id"`
	TemplateID *string   `json:"template_id,omitempty" db:"template_id"`
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	CustomName string    `json:"custom_name" db:"custom_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Process is an ordered grouping of actions within a procedure. Order is
// unique within the parent procedure and is append-only.
type Process struct {
	ID          string    `json:"id" db:"id"`
	ProcedureID string    `json:"procedure_id" db:"procedure_id"`
	Name        string    `json:"name" db:"name"`
	Order       int       `json:"order" db:"ord"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Action is the atomic unit of work within a process, optionally bound to a
// default role in the external directory. Order is unique within the parent
// process.
type Action struct {
	ID            string    `json:"id" db:"id"`
	ProcessID     string    `json:"process_id" db:"process_id"`
	Name          string    `json:"name" db:"name"`
	Instructions  string    `json:"instructions" db:"instructions"`
	DefaultRoleID *string   `json:"default_role_id,omitempty" db:"default_role_id"`
	Order         int       `json:"order" db:"ord"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ProcedureAction is an action joined with its parent process name. Slices of
// ProcedureAction are always in (process.order, action.order) order; this
// total order drives default resolution, snapshotting and display.
type ProcedureAction struct {
	Action
	ProcessName string `json:"process_name" db:"process_name"`
}

// ActionProposal is one entry of the default-assignment resolver output.
// ProposedUserID is nil when the default role resolved to zero or multiple
// users and the action must be assigned manually.
type ActionProposal struct {
	ActionID       string  `json:"action_id"`
	ActionName     string  `json:"action_name"`
	ProcessName    string  `json:"process_name"`
	ProposedUserID *string `json:"proposed_user_id,omitempty"`
}

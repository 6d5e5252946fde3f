package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the PPA tables. instance_actions.action_id carries no
// foreign key on purpose: the snapshot must survive deletion of the live
// action once every referencing instance is terminal.
const Schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	domain TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS procedure_templates (
	id UUID PRIMARY KEY,
	description TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS procedures (
	id UUID PRIMARY KEY,
	template_id UUID REFERENCES procedure_templates(id) ON DELETE SET NULL,
	tenant_id UUID NOT NULL REFERENCES tenants(id),
	custom_name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS processes (
	id UUID PRIMARY KEY,
	procedure_id UUID NOT NULL REFERENCES procedures(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	ord INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (procedure_id, ord)
);

CREATE TABLE IF NOT EXISTS actions (
	id UUID PRIMARY KEY,
	process_id UUID NOT NULL REFERENCES processes(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	instructions TEXT NOT NULL DEFAULT '',
	default_role_id TEXT,
	ord INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (process_id, ord)
);

CREATE TABLE IF NOT EXISTS procedure_instances (
	id UUID PRIMARY KEY,
	procedure_id UUID NOT NULL REFERENCES procedures(id) ON DELETE RESTRICT,
	tenant_id UUID NOT NULL REFERENCES tenants(id),
	target_entity_id TEXT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL DEFAULT now(),
	due_date TIMESTAMPTZ,
	status TEXT NOT NULL CHECK (status IN ('not_started', 'in_progress', 'completed'))
);

CREATE TABLE IF NOT EXISTS instance_actions (
	id UUID PRIMARY KEY,
	instance_id UUID NOT NULL REFERENCES procedure_instances(id) ON DELETE CASCADE,
	action_id UUID NOT NULL,
	process_name TEXT NOT NULL,
	name TEXT NOT NULL,
	instructions TEXT NOT NULL DEFAULT '',
	ord INT NOT NULL,
	done BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (instance_id, action_id)
);

CREATE TABLE IF NOT EXISTS assignments (
	id UUID PRIMARY KEY,
	instance_id UUID NOT NULL REFERENCES procedure_instances(id) ON DELETE CASCADE,
	instance_action_id UUID NOT NULL REFERENCES instance_actions(id) ON DELETE CASCADE,
	assigned_user_id TEXT NOT NULL,
	UNIQUE (instance_action_id)
);

CREATE INDEX IF NOT EXISTS idx_instances_tenant_start ON procedure_instances (tenant_id, start_date DESC);
CREATE INDEX IF NOT EXISTS idx_instance_actions_action ON instance_actions (action_id);
`

// Migrate applies the schema. Statements are idempotent so it is safe to run
// at every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}

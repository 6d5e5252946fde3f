package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ppa/backend/internal/apperr"
	"ppa/backend/pkg/models"
)

// PostgresRepository is the PostgreSQL implementation of Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ping verifies the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return apperr.Storage("database ping failed", err)
	}
	return nil
}

// storageErr wraps a database failure unless it already carries a business kind.
func storageErr(msg string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Storage(msg, err)
}

// GetTenantByDomain looks up a tenant by its email domain.
func (r *PostgresRepository) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	var t models.Tenant
	err := r.db.QueryRow(ctx,
		`SELECT id, name, domain, created_at, updated_at FROM tenants WHERE domain = $1`,
		domain,
	).Scan(&t.ID, &t.Name, &t.Domain, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("tenant", domain)
	}
	if err != nil {
		return nil, storageErr("get tenant", err)
	}
	return &t, nil
}

// CreateTenant inserts a tenant, generating its id.
func (r *PostgresRepository) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, name, domain, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		tenant.ID, tenant.Name, tenant.Domain, tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		return storageErr("create tenant", err)
	}
	return nil
}

// ListTemplates returns the standard procedure templates.
func (r *PostgresRepository) ListTemplates(ctx context.Context) ([]*models.ProcedureTemplate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, description, created_at FROM procedure_templates ORDER BY description`)
	if err != nil {
		return nil, storageErr("list templates", err)
	}
	defer rows.Close()

	var templates []*models.ProcedureTemplate
	for rows.Next() {
		var t models.ProcedureTemplate
		if err := rows.Scan(&t.ID, &t.Description, &t.CreatedAt); err != nil {
			return nil, storageErr("scan template", err)
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// GetTemplate retrieves a template by id.
func (r *PostgresRepository) GetTemplate(ctx context.Context, id string) (*models.ProcedureTemplate, error) {
	var t models.ProcedureTemplate
	err := r.db.QueryRow(ctx,
		`SELECT id, description, created_at FROM procedure_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Description, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("template", id)
	}
	if err != nil {
		return nil, storageErr("get template", err)
	}
	return &t, nil
}

// CreateTemplate inserts a standard template. Used by system configuration
// (seed) only.
func (r *PostgresRepository) CreateTemplate(ctx context.Context, tpl *models.ProcedureTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	tpl.CreatedAt = time.Now()
	_, err := r.db.Exec(ctx,
		`INSERT INTO procedure_templates (id, description, created_at) VALUES ($1, $2, $3)`,
		tpl.ID, tpl.Description, tpl.CreatedAt,
	)
	if err != nil {
		return storageErr("create template", err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"log"

	"ppa/backend/internal/config"
	"ppa/backend/internal/logging"
	"ppa/backend/internal/repository"
	"ppa/backend/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seeds a local development database: a default tenant, the standard
// procedure templates, and one demo procedure with processes and actions.
func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	repo := repository.NewPostgresRepository(pool)

	// 1. Ensure the dev tenant exists
	domain := "localhost"
	tenant, err := repo.GetTenantByDomain(ctx, domain)
	if err != nil {
		logger.Info("Creating default tenant", "domain", domain)
		tenant = &models.Tenant{
			Name:   "Local Dev Tenant",
			Domain: domain,
		}
		if err := repo.CreateTenant(ctx, tenant); err != nil {
			log.Fatalf("Failed to create tenant: %v", err)
		}
	} else {
		logger.Info("Found existing tenant", "id", tenant.ID)
	}

	// 2. Standard templates, skipping ones already present
	existing, err := repo.ListTemplates(ctx)
	if err != nil {
		log.Fatalf("Failed to list templates: %v", err)
	}
	existingMap := make(map[string]bool)
	for _, t := range existing {
		existingMap[t.Description] = true
	}

	templates := []string{
		"Client Onboarding",
		"Annual Accounts Close",
		"VAT Return Filing",
	}
	var onboardingTemplateID string
	for _, desc := range templates {
		if existingMap[desc] {
			logger.Info("Skipping existing template", "description", desc)
			continue
		}
		tpl := &models.ProcedureTemplate{Description: desc}
		if err := repo.CreateTemplate(ctx, tpl); err != nil {
			log.Fatalf("Failed to create template %q: %v", desc, err)
		}
		logger.Info("Seeded template", "description", desc, "id", tpl.ID)
		if desc == "Client Onboarding" {
			onboardingTemplateID = tpl.ID
		}
	}

	// 3. Demo procedure, only on a fresh database
	procedures, err := repo.ListProcedures(ctx, tenant.ID)
	if err != nil {
		log.Fatalf("Failed to list procedures: %v", err)
	}
	if len(procedures) > 0 {
		logger.Info("Tenant already has procedures, skipping demo seed")
		return
	}

	proc := &models.Procedure{
		TenantID:   tenant.ID,
		CustomName: "Client Onboarding (ACME)",
	}
	if onboardingTemplateID != "" {
		proc.TemplateID = &onboardingTemplateID
	}
	if err := repo.CreateProcedure(ctx, proc); err != nil {
		log.Fatalf("Failed to create demo procedure: %v", err)
	}

	accountant := "role-accountant"
	seedProcesses := []struct {
		Name    string
		Actions []models.Action
	}{
		{
			Name: "Verification",
			Actions: []models.Action{
				{Name: "Check VAT number", Instructions: "Validate the VAT number against the VIES registry.", DefaultRoleID: &accountant},
				{Name: "Check registered address", Instructions: "Compare the registered address with the chamber of commerce extract."},
			},
		},
		{
			Name: "Setup",
			Actions: []models.Action{
				{Name: "Create ledger", Instructions: "Open the general ledger with the standard chart of accounts.", DefaultRoleID: &accountant},
			},
		},
	}

	for _, sp := range seedProcesses {
		process := &models.Process{
			ProcedureID: proc.ID,
			Name:        sp.Name,
		}
		if err := repo.CreateProcess(ctx, tenant.ID, process); err != nil {
			log.Fatalf("Failed to create process %q: %v", sp.Name, err)
		}
		for _, a := range sp.Actions {
			action := a
			action.ProcessID = process.ID
			if err := repo.CreateAction(ctx, tenant.ID, &action); err != nil {
				log.Fatalf("Failed to create action %q: %v", a.Name, err)
			}
		}
		logger.Info("Seeded process", "name", sp.Name, "actions", len(sp.Actions))
	}

	logger.Info("Seeding complete!", "procedure", proc.CustomName, "id", proc.ID)
}

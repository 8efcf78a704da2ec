package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
	"github.com/tawqeea/marketplace-backend/internal/domain/repositories"
	"github.com/tawqeea/marketplace-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tawqeea/marketplace-backend/pkg/errors"
)

// ProjectAdapter implements the ProjectRepository interface
type ProjectAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProjectAdapter creates a new project adapter
func NewProjectAdapter(client *postgres.Client) repositories.ProjectRepository {
	return &ProjectAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a project by ID
func (a *ProjectAdapter) GetByID(ctx context.Context, id string) (*entities.Project, error) {
	query, args, err := a.db.Select(
		"id", "owner_user_id", "owner_name", "owner_email", "title",
		"description", "is_active", "created_at", "updated_at",
	).
		From("projects").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	project := &entities.Project{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&project.ID,
		&project.OwnerUserID,
		&project.OwnerName,
		&project.OwnerEmail,
		&project.Title,
		&project.Description,
		&project.IsActive,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("project with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get project", err)
	}

	return project, nil
}

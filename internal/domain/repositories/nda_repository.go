package repositories

import (
	"context"

	"github.com/tawqeea/marketplace-backend/internal/domain/entities"
)

// NdaRepository defines the interface for NDA record data operations
type NdaRepository interface {
	// Create creates a new NDA record
	Create(ctx context.Context, record *entities.NdaRecord) error

	// GetByID retrieves an NDA record by ID
	GetByID(ctx context.Context, id string) (*entities.NdaRecord, error)

	// GetByReferenceNumber retrieves an NDA record by its provider reference number
	GetByReferenceNumber(ctx context.Context, referenceNumber string) (*entities.NdaRecord, error)

	// FindActive returns the non-terminal record for a (project, company) pair,
	// or a NOT_FOUND error when none is active
	FindActive(ctx context.Context, projectID, companyUserID string) (*entities.NdaRecord, error)

	// Update persists all mutable fields of an NDA record
	Update(ctx context.Context, record *entities.NdaRecord) error

	// ListByProject retrieves the historical records of a project, newest first
	ListByProject(ctx context.Context, projectID string, filter NdaFilter) ([]*entities.NdaRecord, error)
}

// NdaFilter defines filters for listing NDA records
type NdaFilter struct {
	Status entities.NdaStatus
	Limit  int
	Offset int
}

// ProjectRepository defines the read access the NDA workflow needs on projects
type ProjectRepository interface {
	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id string) (*entities.Project, error)
}

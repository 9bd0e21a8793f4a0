package models

import (
	"time"
)

// Model is a database-backed entity with a string id, a monotonic sequence and soft deletion.
type Model interface {
	ID() string
	Sequence() int
	CreatedAt() time.Time
	UpdatedAt() time.Time
	DeletedAt() *time.Time // nil while the record is live
	Validate() error
}

// Repository is the CRUD surface shared by persistent entities.
//
// Get returns an error wrapping the repository's not-found sentinel for missing or deleted records,
// and Delete is a soft delete. List criteria keys are defined per implementation.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}

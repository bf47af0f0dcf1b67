package contact

import (
	"context"

	"github.com/google/uuid"
)

// Field names accepted by Repository.FindByExactField.
const (
	FieldFirstName    = "first_name"
	FieldLastName     = "last_name"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldAddressLine1 = "address_line1"
)

type FindParams struct {
	OwnerID uuid.UUID
	Tag     string
	Limit   int
	Offset  int
}

type Repository interface {
	GetPaginated(ctx context.Context, params *FindParams) ([]Contact, int64, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (Contact, error)
	FindAll(ctx context.Context, ownerID uuid.UUID) ([]Contact, error)
	FindByExactField(ctx context.Context, field, value string, ownerID uuid.UUID) ([]Contact, error)
	FindByNormalizedPhone(ctx context.Context, digits string, ownerID uuid.UUID) ([]Contact, error)
	Insert(ctx context.Context, c Contact) (uuid.UUID, error)
	InsertMany(ctx context.Context, contacts []Contact) error
	Update(ctx context.Context, c Contact) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Tags(ctx context.Context, ownerID uuid.UUID) ([]string, error)
}

package contact

import "github.com/google/uuid"

type CreatedEvent struct {
	OwnerID uuid.UUID
	Result  Contact
	Source  string
}

type UpdatedEvent struct {
	OwnerID uuid.UUID
	Result  Contact
}

type DeletedEvent struct {
	OwnerID   uuid.UUID
	ContactID uuid.UUID
	Source    string
}

const (
	SourceManual = "manual"
	SourceImport = "import"
	SourceDedupe = "dedupe"
)

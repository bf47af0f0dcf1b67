package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/shepherd/pkg/constants"
)

var (
	ErrNoOwner = errors.New("owner not found in context")
)

// UseLogger returns the request-scoped logger, or a bare entry when none was injected.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.OwnerKey, ownerID)
}

func UseOwnerID(ctx context.Context) (uuid.UUID, error) {
	ownerID, ok := ctx.Value(constants.OwnerKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		return uuid.Nil, ErrNoOwner
	}
	return ownerID, nil
}

package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "request_start"
	DBKey        ContextKey = "db"
	TxKey        ContextKey = "tx"
	OwnerKey     ContextKey = "owner"
	AppKey       ContextKey = "app"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())

package application

import (
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/shepherd/pkg/eventbus"
)

// Controller mounts its routes on the shared router. Key must be unique.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module wires one bounded context into the application.
type Module interface {
	Name() string
	Register(app Application) error
}

type Application interface {
	DB() *sqlx.DB
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
}

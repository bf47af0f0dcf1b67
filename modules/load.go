package modules

import (
	"github.com/iota-uz/shepherd/modules/contacts"
	"github.com/iota-uz/shepherd/pkg/application"
	"github.com/iota-uz/shepherd/pkg/configuration"
)

// BuiltInModules returns the modules every server and CLI process loads.
func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		contacts.NewModule(contacts.OptionsFromConfig(conf)),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.LoadModules(app, externalModules...)
}

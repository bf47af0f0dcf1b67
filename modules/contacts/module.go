package contacts

import (
	"time"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/modules/contacts/infrastructure/persistence"
	"github.com/iota-uz/shepherd/modules/contacts/presentation/controllers"
	"github.com/iota-uz/shepherd/modules/contacts/services"
	"github.com/iota-uz/shepherd/pkg/application"
	"github.com/iota-uz/shepherd/pkg/configuration"
	"github.com/iota-uz/shepherd/pkg/eventbus"
	"github.com/iota-uz/shepherd/pkg/metrics"
)

type ModuleOptions struct {
	HTTP        controllers.Options
	SessionTTL  time.Duration
	PreviewRows int
	TagCacheTTL time.Duration
	OpenAI      configuration.OpenAIOptions
}

// OptionsFromConfig maps the environment configuration onto module options.
func OptionsFromConfig(conf *configuration.Configuration) *ModuleOptions {
	return &ModuleOptions{
		HTTP: controllers.Options{
			UploadsPath:   conf.UploadsPath,
			MaxUploadSize: conf.Import.MaxUploadSize,
			PageSize:      conf.PageSize,
			MaxPageSize:   conf.MaxPageSize,
			OwnerHeader:   conf.OwnerHeader,
		},
		SessionTTL:  conf.Import.SessionTTL,
		PreviewRows: conf.Import.PreviewRows,
		TagCacheTTL: conf.TagCacheTTL,
		OpenAI:      conf.OpenAI,
	}
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	contactRepo := persistence.NewContactRepository()
	donationRepo := persistence.NewDonationRepository()
	outreachRepo := persistence.NewOutreachRepository()
	publisher := app.EventPublisher()

	tags := services.NewTagCache(contactRepo, m.options.TagCacheTTL)
	tags.Subscribe(publisher)
	subscribeMetrics(publisher)

	app.RegisterServices(
		services.NewContactService(contactRepo, publisher, tags),
		services.NewImportService(contactRepo, publisher, m.options.SessionTTL, m.options.PreviewRows),
		services.NewDuplicateService(contactRepo, publisher, m.options.SessionTTL),
		services.NewHistoryService(contactRepo, donationRepo, outreachRepo, publisher),
		services.NewDraftService(m.options.OpenAI, contactRepo, outreachRepo),
		services.NewExportService(contactRepo),
	)

	app.RegisterControllers(
		controllers.NewContactAPIController(app, m.options.HTTP),
		controllers.NewImportAPIController(app, m.options.HTTP),
		controllers.NewDuplicatesAPIController(app, m.options.HTTP),
	)
	return nil
}

func subscribeMetrics(bus eventbus.EventBus) {
	bus.Subscribe(func(e *contact.CreatedEvent) { metrics.ObserveContactEvent("created", e.Source) })
	bus.Subscribe(func(e *contact.UpdatedEvent) { metrics.ObserveContactEvent("updated", contact.SourceManual) })
	bus.Subscribe(func(e *contact.DeletedEvent) { metrics.ObserveContactEvent("deleted", e.Source) })
}

func (m *Module) Name() string {
	return "contacts"
}

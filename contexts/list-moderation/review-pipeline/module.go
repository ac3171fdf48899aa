package reviewpipeline

import (
	"log/slog"
	"time"

	httpadapter "ranklist/contexts/list-moderation/review-pipeline/adapters/http"
	"ranklist/contexts/list-moderation/review-pipeline/adapters/memory"
	"ranklist/contexts/list-moderation/review-pipeline/adapters/urlcheck"
	"ranklist/contexts/list-moderation/review-pipeline/application/commands"
	"ranklist/contexts/list-moderation/review-pipeline/application/queries"
	"ranklist/contexts/list-moderation/review-pipeline/application/workers"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/contexts/list-moderation/review-pipeline/domain/services"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Reaper   workers.StaleClaimReaper
	Relay    workers.OutboxRelay
	Consumer workers.NotificationConsumer
	Store    *memory.Store
}

type Dependencies struct {
	Repository  ports.SubmissionRepository
	Records     ports.RecordReader
	Outbox      ports.OutboxRepository
	Lists       ports.ListCatalog
	Entries     ports.ListEntries
	Validator   ports.URLValidator
	Permissions ports.PermissionChecker
	Bans        ports.BanLookup
	Settings    ports.SubmissionSettings
	Standing    ports.StandingLookup
	Sink        ports.NotificationSink
	Publisher   ports.EventPublisher
	Subscriber  ports.EventSubscriber
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Metrics     ports.Metrics

	BlockingBanTier entities.BanTier
	ClaimTimeout    time.Duration
	OutboxBatch     int
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	policy := commands.SubmitterPolicy{
		Settings:        deps.Settings,
		Bans:            deps.Bans,
		BlockingBanTier: deps.BlockingBanTier,
	}
	createSubmission := commands.CreateSubmissionUseCase{
		Repository: deps.Repository,
		Lists:      deps.Lists,
		Entries:    deps.Entries,
		Validator:  deps.Validator,
		Standing:   deps.Standing,
		Policy:     policy,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Metrics:    deps.Metrics,
		Logger:     deps.Logger,
	}
	reviewSubmission := commands.ReviewSubmissionUseCase{
		Repository:  deps.Repository,
		Permissions: deps.Permissions,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	deleteSubmission := commands.DeleteSubmissionUseCase{
		Repository:  deps.Repository,
		Permissions: deps.Permissions,
		Clock:       deps.Clock,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	patchSubmission := commands.PatchSubmissionUseCase{
		Repository:  deps.Repository,
		Lists:       deps.Lists,
		Entries:     deps.Entries,
		Validator:   deps.Validator,
		Permissions: deps.Permissions,
		Policy:      policy,
		Review:      reviewSubmission,
		Delete:      deleteSubmission,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	claimSubmission := commands.ClaimSubmissionUseCase{
		Repository:  deps.Repository,
		Lists:       deps.Lists,
		Permissions: deps.Permissions,
		Clock:       deps.Clock,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	queryUseCase := queries.QueryUseCase{
		Repository:  deps.Repository,
		Records:     deps.Records,
		Lists:       deps.Lists,
		Permissions: deps.Permissions,
		Logger:      deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			CreateSubmission: createSubmission,
			PatchSubmission:  patchSubmission,
			ClaimSubmission:  claimSubmission,
			ReviewSubmission: reviewSubmission,
			DeleteSubmission: deleteSubmission,
			Queries:          queryUseCase,
			Logger:           deps.Logger,
		},
		Reaper: workers.StaleClaimReaper{
			Repository: deps.Repository,
			IDGen:      deps.IDGen,
			Clock:      deps.Clock,
			Timeout:    deps.ClaimTimeout,
			Metrics:    deps.Metrics,
			Logger:     deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatch,
			Logger:    deps.Logger,
		},
		Consumer: workers.NotificationConsumer{
			Subscriber: deps.Subscriber,
			Sink:       deps.Sink,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one in-memory store. The bus may be
// nil when the caller does not run the relay or the consumer.
func NewInMemoryModule(bus EventBus, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:  store,
		Records:     store,
		Outbox:      store,
		Lists:       services.NewListCatalog(services.DefaultLists()...),
		Entries:     store,
		Validator:   urlcheck.Validator{},
		Permissions: store,
		Bans:        store,
		Settings:    store,
		Standing:    store,
		Sink:        store,
		Publisher:   bus,
		Subscriber:  bus,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}

// EventBus is satisfied by the platform messaging bus.
type EventBus interface {
	ports.EventPublisher
	ports.EventSubscriber
}

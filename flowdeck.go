package flowdeck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/flowdeck/internal/config"
	"github.com/aretw0/flowdeck/internal/flow"
	"github.com/aretw0/flowdeck/internal/llm"
	"github.com/aretw0/flowdeck/internal/logging"
	"github.com/aretw0/flowdeck/internal/session"
	"github.com/aretw0/flowdeck/internal/template"
	"github.com/aretw0/flowdeck/internal/textget"
	"github.com/aretw0/flowdeck/pkg/adapters/localfs"
	"github.com/aretw0/flowdeck/pkg/adapters/redisstore"
	"github.com/aretw0/flowdeck/pkg/domain"
	"github.com/aretw0/flowdeck/pkg/observability"
	"github.com/aretw0/flowdeck/pkg/ports"
)

// includeLibFolder holds the shared template fragments referenced by
// include directives.
// Version is the semantic version of the library and CLI.
const Version = "0.1.0"

const includeLibFolder = "include_lib"

// Config is the application configuration, re-exported for library
// consumers.
type Config = config.Config

// DefaultConfig returns the built-in configuration defaults.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// App is the high-level entry point for the flowdeck library. It wires
// storage, templates, sessions and the flow collaborators from a
// configuration and builds ready-to-run flows.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	data      ports.Storage
	templates *template.Manager
	sessions  *session.Store
	extractor ports.Extractor
	models    ports.ModelCatalog
	enricher  *flow.ContextEnricher
	metrics   *observability.Metrics
	registry  *prometheus.Registry
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithStorage injects a storage backend, bypassing the configured one.
func WithStorage(storage ports.Storage) Option {
	return func(a *App) { a.data = storage }
}

// WithExtractor injects a custom text extractor.
func WithExtractor(extractor ports.Extractor) Option {
	return func(a *App) { a.extractor = extractor }
}

// WithModelCatalog injects a custom chat model catalog.
func WithModelCatalog(models ports.ModelCatalog) Option {
	return func(a *App) { a.models = models }
}

// New initializes the App from a configuration.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		app.logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	}

	var templatesStore, includeStore ports.Storage
	switch {
	case app.data != nil:
		templatesStore = app.data
		includeStore = app.data
	case cfg.Storage.Backend == "redis":
		r := cfg.Storage.Redis
		app.data = redisstore.New(r.Address, r.Password, r.DB, redisstore.WithPrefix(r.Prefix+":data"))
		templatesStore = redisstore.New(r.Address, r.Password, r.DB, redisstore.WithPrefix(r.Prefix+":"+cfg.Paths.TemplatesDir))
		includeStore = redisstore.New(r.Address, r.Password, r.DB, redisstore.WithPrefix(r.Prefix+":"+includeLibFolder))
	default:
		var err error
		app.data, err = localfs.New(cfg.Paths.Root)
		if err != nil {
			return nil, fmt.Errorf("opening storage root: %w", err)
		}
		templatesStore, err = localfs.New(filepath.Join(cfg.Paths.Root, cfg.Paths.TemplatesDir))
		if err != nil {
			return nil, fmt.Errorf("opening templates dir: %w", err)
		}
		includeStore, err = localfs.New(filepath.Join(cfg.Paths.Root, includeLibFolder))
		if err != nil {
			return nil, fmt.Errorf("opening include lib dir: %w", err)
		}
	}

	app.registry = prometheus.NewRegistry()
	app.metrics = observability.NewMetrics(app.registry)

	app.templates = template.NewManager(templatesStore, includeStore, app.logger)
	app.sessions = session.NewStore(app.data, cfg.Paths.SessionsDir, flow.StatePatterns(),
		session.WithLogger(app.logger), session.WithMetrics(app.metrics))

	if app.extractor == nil {
		app.extractor = textget.New(textget.Config{
			JiraURL:         cfg.Atlassian.JiraURL,
			JiraAPIEndpoint: cfg.Atlassian.JiraAPIEndpoint,
			Email:           cfg.Atlassian.Email,
			APIToken:        cfg.Atlassian.APIToken,
		}, textget.WithStorage(app.data), textget.WithLogger(app.logger))
	}
	if app.models == nil {
		app.models = llm.NewCatalog(llm.Config{
			BaseURL: cfg.Chat.BaseURL,
			APIKey:  cfg.Chat.APIKey,
			ModelID: cfg.Chat.ModelID,
		})
	}
	app.enricher = flow.NewContextEnricher(app.extractor, cfg.Atlassian.JiraURL, cfg.Atlassian.Projects)

	return app, nil
}

// Templates returns the template manager.
func (a *App) Templates() *template.Manager { return a.templates }

// Sessions returns the session store.
func (a *App) Sessions() *session.Store { return a.sessions }

// Storage returns the data storage backend.
func (a *App) Storage() ports.Storage { return a.data }

// MetricsRegistry returns the prometheus registry the app records into.
func (a *App) MetricsRegistry() *prometheus.Registry { return a.registry }

// LoadFlow loads the named template and builds a flow bound to renderer.
// name is the template path relative to the templates dir, without the
// .yaml extension, e.g. "decision_docs/create_prd".
func (a *App) LoadFlow(ctx context.Context, name string, renderer ports.Renderer) (*flow.Flow, error) {
	doc, err := a.templates.LoadTemplate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loading template %q: %w", name, err)
	}
	flowConfig, err := flow.ParseConfig(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing template %q: %w", name, err)
	}

	f := flow.New(flowConfig, renderer,
		flow.WithLogger(a.logger.With("flow", name)),
		flow.WithSessions(a.sessions),
		flow.WithExtractor(a.extractor),
		flow.WithModels(a.models),
		flow.WithUploads(a.data),
		flow.WithContextEnricher(a.enricher),
		flow.WithMetrics(a.metrics),
	)
	if err := f.LoadSteps(); err != nil {
		return nil, fmt.Errorf("building flow %q: %w", name, err)
	}
	return f, nil
}

// RunFlow loads the named template and drives it to a settled state,
// starting from the current session snapshot.
func (a *App) RunFlow(ctx context.Context, name string, renderer ports.Renderer) error {
	f, err := a.LoadFlow(ctx, name, renderer)
	if err != nil {
		return err
	}
	state, err := a.restoreState(ctx)
	if err != nil {
		return err
	}
	return f.Run(ctx, state)
}

func (a *App) restoreState(ctx context.Context) (*domain.State, error) {
	state := domain.NewState()
	name := a.sessions.Current()
	if name == "" {
		name = session.DefaultSessionName
	}
	snapshot, err := a.sessions.LoadNamed(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return state, nil
		}
		return nil, err
	}
	a.sessions.ApplySnapshot(state, snapshot)
	return state, nil
}

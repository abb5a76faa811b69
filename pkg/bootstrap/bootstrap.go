// Package bootstrap turns a Config into the running dependencies shared by
// the HTTP server and the lambdas.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/config"
	"github.com/chris/donation-broker/pkg/handlers"
	"github.com/chris/donation-broker/pkg/handlers/respond"
	"github.com/chris/donation-broker/pkg/middleware"
	"github.com/chris/donation-broker/pkg/notify"
	"github.com/chris/donation-broker/pkg/storage"
	"github.com/chris/donation-broker/pkg/storage/dynamodb"
	"github.com/chris/donation-broker/pkg/storage/memory"
	"github.com/chris/donation-broker/pkg/storage/postgres"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// PublicPaths skip caller identification.
var PublicPaths = []string{"/healthz"}

// Deps holds the opened store and notifier. Close releases them.
type Deps struct {
	Store    storage.Storage
	Notifier notify.Notifier

	closers []func()
}

// Close releases connections in reverse order of opening.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// Open connects the storage backend and notifier named by cfg.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	d := &Deps{}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		d.Store = memory.NewStore()
	case config.BackendDynamoDB:
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		t := cfg.Storage.DynamoDB
		d.Store = dynamodb.New(awsdynamodb.NewFromConfig(c), dynamodb.TableNames{
			Donations:     t.Donations,
			Funding:       t.Funding,
			Usage:         t.Usage,
			ItemRequests:  t.ItemRequests,
			Contributions: t.Contributions,
			Pool:          t.Pool,
		})
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)
		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			d.Close()
			return nil, err
		}
		d.Store = store
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	switch cfg.Notifier.Kind {
	case config.NotifierNone:
		d.Notifier = notify.NoOp{}
	case config.NotifierSQS:
		c, err := loadAWS()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Notifier = notify.NewSQSNotifier(sqs.NewFromConfig(c), cfg.Notifier.SQSQueueURL)
	case config.NotifierNATS:
		conn, err := notify.DialNATS(cfg.Notifier.NATSURL)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, conn.Close)
		d.Notifier = notify.NewNATSNotifier(conn, cfg.Notifier.SubjectPrefix)
	default:
		d.Close()
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier.Kind)
	}

	logger.Info("dependencies ready",
		slog.String("storage", cfg.Storage.Backend),
		slog.String("notifier", cfg.Notifier.Kind),
	)
	return d, nil
}

// IdentityProvider picks the caller resolver named by cfg.
func IdentityProvider(cfg *config.Config) middleware.IdentityProvider {
	if cfg.Identity.Mode == config.IdentityJWT {
		return middleware.JWTIdentity{Secret: []byte(cfg.Identity.JWTSecret)}
	}
	return middleware.HeaderIdentity{}
}

// NewRouter mounts the API on a chi router behind the standard middleware stack.
func NewRouter(service broker.Service, provider middleware.IdentityProvider, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Identity(provider, PublicPaths...))

	return api.HandlerWithOptions(handlers.NewApiHandler(service), api.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: respond.ParamError,
	})
}

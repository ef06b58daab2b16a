package echo

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/echo/pkg/api"
	"github.com/petrijr/echo/pkg/cache"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Executable           = api.Executable
	Registry             = api.Registry
	Plan                 = api.Plan
	Signature            = api.Signature
	Handler              = api.Handler
	HandlerFunc          = api.HandlerFunc
	Metadata             = api.Metadata
	WorkQueue            = api.WorkQueue
	ExecutionContext     = api.ExecutionContext
	ContextOption        = api.ContextOption
	Hook                 = api.Hook
	Cache                = api.Cache
	Worker               = api.Worker
	WorkerFunc           = api.WorkerFunc
	DirectWorker         = api.DirectWorker
	ActionError          = api.ActionError
	ErrorKind            = api.ErrorKind
	RetryPolicy          = api.RetryPolicy
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export constructors and helpers.

var (
	NewPlan              = api.NewPlan
	NewWorkQueue         = api.NewWorkQueue
	NewExecutionContext  = api.NewExecutionContext
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	FromContext          = api.FromContext
	WithConfig           = api.WithConfig
	WithCache            = api.WithCache
	WithLogger           = api.WithLogger
	WithHook             = api.WithHook
	KindOf               = api.KindOf
)

// Re-export metadata keys.

const (
	MetaAction     = api.MetaAction
	MetaDelay      = api.MetaDelay
	MetaHooks      = api.MetaHooks
	MetaNextAction = api.MetaNextAction
	MetaArguments  = api.MetaArguments
	MetaResultKey  = api.MetaResultKey
)

// Re-export error kinds and their sentinels.

const (
	KindExecution    = api.KindExecution
	KindLicense      = api.KindLicense
	KindRouting      = api.KindRouting
	KindCancellation = api.KindCancellation
)

var (
	ErrLicense      = api.ErrLicense
	ErrExecution    = api.ErrExecution
	ErrRouting      = api.ErrRouting
	ErrCancellation = api.ErrCancellation
)

// NewAction creates an action named name with content whose handler is
// resolved from reg.
func NewAction[T any](name string, content T, reg *Registry) *api.Action[T] {
	return api.New(name, content, reg)
}

// Cache constructors

// NewRedisCache creates a Redis-backed result cache using the given client.
func NewRedisCache(client *redis.Client) Cache {
	return cache.NewRedisCache(client, "echo:")
}

// NewSQLiteCache creates a SQLite-backed result cache.
//
// The caller must import a SQLite driver, e.g. _ "modernc.org/sqlite".
func NewSQLiteCache(db *sql.DB) (Cache, error) {
	return cache.NewSQLiteCache(db, "")
}

// NewPostgresCache creates a PostgreSQL-backed result cache.
func NewPostgresCache(db *sql.DB) (Cache, error) {
	return cache.NewPostgresCache(db, "")
}

// NewMongoCache creates a MongoDB-backed result cache in the "echo"
// database.
func NewMongoCache(client *mongo.Client) Cache {
	return cache.NewMongoCache(client, "echo", "results")
}

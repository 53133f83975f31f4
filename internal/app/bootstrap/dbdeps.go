// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/eventhub/internal/app/system/ratelimit"
	"github.com/dalemusser/eventhub/internal/app/system/tasks"
	"github.com/dalemusser/eventhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Background is filled in by Startup and torn down by Shutdown. WAFFLE
	// passes DBDeps by value, so it is shared through a pointer.
	Background *Background
}

// Background holds the long-running pieces started with the app.
type Background struct {
	Cleanup   *workers.PendingAccountCleanup // nil when disabled
	Scheduler *tasks.Scheduler
	Limiter   *ratelimit.AuthLimiter
}

package bootstrap

import (
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// The Mongo fields are nil when mongo_uri is blank. Background is always
// set by ConnectDB; BuildHandler registers its workers there so Shutdown
// can stop them.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Background    *Background
}

// Background collects the stop funcs of long-running helpers.
type Background struct {
	mu    sync.Mutex
	stops []func()
}

// Add registers stop to run at shutdown.
func (b *Background) Add(stop func()) {
	b.mu.Lock()
	b.stops = append(b.stops, stop)
	b.mu.Unlock()
}

// StopAll runs the registered stop funcs in reverse order, once each.
func (b *Background) StopAll() {
	b.mu.Lock()
	stops := b.stops
	b.stops = nil
	b.mu.Unlock()

	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}
}

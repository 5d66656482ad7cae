// Package engine implements the scoring core: the idempotent daily entry
// upsert, the point ledger with weekly windows, the day-streak calculator,
// and the achievement rule engine with its one-shot bonus awards.
package engine

import (
	"context"
	"time"

	storage "github.com/skmehra/ecotrace/backend/storage/persistent"
	"github.com/skmehra/ecotrace/models"
	"go.uber.org/zap"
)

// Notifier delivers one achievement notification. Implementations are
// best-effort: the engine logs and discards failures, it never retries
// inline and never unwinds a committed award over a failed delivery.
type Notifier interface {
	Notify(ctx context.Context, msg *models.NotificationMessage) error
}

// Engine wires the scoring core to its collaborators. All ledger mutations
// go through the store's transactional batch; the engine holds no mutable
// state of its own and is safe for concurrent use.
type Engine struct {
	store    storage.StorageInterface
	catalog  Catalog
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// New creates an Engine. The catalog is treated as immutable reference data;
// callers must not mutate it after handing it in. A nil notifier disables
// the friend fan-out (awards still happen).
func New(store storage.StorageInterface, catalog Catalog, notifier Notifier, log *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

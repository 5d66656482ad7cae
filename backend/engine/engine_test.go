package engine

import (
	"time"

	"go.uber.org/zap"
)

// testNow is a fixed Wednesday so week-window assertions are stable.
// The Monday of its week is 2024-05-13; the previous window started 2024-05-06.
var testNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func testEngine(store *memStore, catalog Catalog, notifier Notifier) *Engine {
	e := New(store, catalog, notifier, zap.NewNop())
	e.now = func() time.Time { return testNow }
	return e
}

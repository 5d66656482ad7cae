package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/skmehra/ecotrace/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProducer records every body it is handed.
type countingProducer struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (p *countingProducer) Publish(body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *countingProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bodies)
}

func TestProcessNotificationConcurrentRoundRobin(t *testing.T) {
	producers := []*countingProducer{{}, {}, {}}
	q := &Queue{Producers: []Producer{producers[0], producers[1], producers[2]}}
	dispatcher := &Dispatcher{Queue: q}

	// The fan-out publishes from one goroutine per notification; the
	// round-robin assignment must survive that.
	const total = 30
	var wg sync.WaitGroup
	errs := make(chan error, total)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- dispatcher.Notify(context.Background(), &models.NotificationMessage{
				ID:              uuid.NewString(),
				To:              "friend@example.com",
				AchievementName: "Century",
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	published := 0
	for _, p := range producers {
		published += p.count()
	}
	assert.Equal(t, total, published)

	// Each atomic increment maps to exactly one producer, so the load
	// splits evenly.
	for i, p := range producers {
		assert.Equal(t, total/len(producers), p.count(), "producer %d", i)
	}

	var msg models.NotificationMessage
	require.NoError(t, json.Unmarshal(producers[0].bodies[0], &msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "Century", msg.AchievementName)
}

func TestProcessNotificationNoProducers(t *testing.T) {
	err := ProcessNotification(&models.NotificationMessage{ID: uuid.NewString()}, &Queue{})
	assert.Error(t, err)
}

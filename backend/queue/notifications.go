package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/skmehra/ecotrace/backend/server/notifications/email"
	storage "github.com/skmehra/ecotrace/backend/storage/cache"
	"github.com/skmehra/ecotrace/models"
	"github.com/streadway/amqp"
)

// globalCount is used by the round robin algorithm that assigns a producer
// to each notification message. It must be read and advanced atomically:
// the fan-out publishes from one goroutine per notification, so the shared
// *amqp.Channel inside each producer is the only serialization point left.
var globalCount atomic.Uint64

// NotificationProducerFactory creates new NotificationProducer instances.
type NotificationProducerFactory struct{}

// NotificationConsumerFactory creates new NotificationConsumer instances.
// It carries the cache used to deduplicate broker redeliveries.
type NotificationConsumerFactory struct {
	Cache storage.CacheInterface
}

// NotificationProducer manages the connection, channel, and queue of the
// AMQP message producer for achievement notifications.
type NotificationProducer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
}

// NotificationConsumer manages the connection, channel, queue and dedupe
// cache of the AMQP message consumer for achievement notifications.
type NotificationConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
	cache   storage.CacheInterface
}

// CreateProducer instantiates a new NotificationProducer with the given
// connection, channel, and queue.
func (f *NotificationProducerFactory) CreateProducer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Producer, error) {
	return &NotificationProducer{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

// CreateConsumer instantiates a new NotificationConsumer with the given
// connection, channel, queue, and the factory's cache.
func (f *NotificationConsumerFactory) CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error) {
	return &NotificationConsumer{
		conn:    conn,
		channel: ch,
		queue:   queue,
		cache:   f.Cache,
	}, nil
}

// Publish publishes the given message body to the notification queue.
// Returns an error if there was a problem with publishing the message.
func (np *NotificationProducer) Publish(body []byte) error {
	err := np.channel.Publish(
		"",            // exchange
		np.queue.Name, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// Consume sets up a consumer on the notification queue and launches a
// goroutine that continuously reads from it. Each message is unmarshalled,
// checked against the processed-id cache, and either delivered by email or
// discarded as a duplicate. Transient failures are nacked for redelivery.
func (nc *NotificationConsumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := nc.channel.Consume(
		nc.queue.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case d, ok := <-msgs:

				if !ok {
					return
				}

				message := &models.NotificationMessage{}
				if err := json.Unmarshal(d.Body, message); err != nil {
					log.Printf("failed to unmarshal notification message: %v", err)
					d.Nack(false, true) // requeue the message in case of transient error.
					continue
				}

				// Fetch processed state from cache
				processed, err := nc.cache.Get(ctx, "notify_"+message.ID)
				if err != nil {
					// Ignore cache misses, handle other errors
					if err.Error() != "key does not exist" {
						log.Printf("error checking cache: %v", err)
						d.Nack(false, true) // requeue the message in case of transient error.
						continue
					}
				}

				if processed != nil {
					d.Ack(false)
					continue
				}

				// Not yet processed, so deliver the notification.
				if err := email.SendAchievementEmail(message.To, message.FriendName, message.AchieverName, message.AchievementName); err != nil {
					log.Printf("failed to send notification email: %v", err)
					d.Nack(false, true) // requeue the message in case of transient error.
				} else {
					d.Ack(false)
					if err := nc.cache.Set(ctx, "notify_"+message.ID, true); err != nil {
						log.Printf("failed to set key in cache: %v", err)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return msgs, nil
}

// BuildNotificationQueue initializes a Queue for achievement notification
// messages, with the requested number of producers and consumers, backed by
// the given dedupe cache.
func BuildNotificationQueue(rabbitMQURL string, numProducers int, numConsumers int, dedupeCache storage.CacheInterface) *Queue {

	prodFactories := make([]ProducerFactory, numProducers)
	for i := 0; i < numProducers; i++ {
		prodFactories[i] = &NotificationProducerFactory{}
	}

	consFactories := make([]ConsumerFactory, numConsumers)
	for i := 0; i < numConsumers; i++ {
		consFactories[i] = &NotificationConsumerFactory{Cache: dedupeCache}
	}

	queue := InitQueue(rabbitMQURL, "notificationQueue", prodFactories, consFactories)
	return queue
}

// InitNotificationCache initializes the cache used to deduplicate processed
// notification ids, at the given URL.
func InitNotificationCache(url string) storage.CacheInterface {
	c, err := storage.NewCache(url)
	if err != nil {
		log.Fatalf("Error connecting to cache: %v", err)
	}
	return c
}

// ProcessNotification serializes a notification message to JSON and
// publishes it onto the queue using one of the producers in a round-robin
// manner. Returns an error if serialization or publishing fails.
func ProcessNotification(msg *models.NotificationMessage, notificationQueue *Queue) error {

	body, err := json.Marshal(msg)
	if err != nil {
		return errors.New("failed to marshal notification message: " + err.Error())
	}

	producerCount := len(notificationQueue.Producers)
	if producerCount == 0 {
		return errors.New("no producers available")
	}

	next := globalCount.Add(1) - 1
	producer := notificationQueue.Producers[next%uint64(producerCount)]

	if err := producer.Publish(body); err != nil {
		return errors.New("failed to publish notification message: " + err.Error())
	}

	return nil
}

// Dispatcher adapts a Queue of notification producers to the engine's
// Notifier interface.
type Dispatcher struct {
	Queue *Queue
}

// Notify publishes one notification message onto the queue.
func (d *Dispatcher) Notify(_ context.Context, msg *models.NotificationMessage) error {
	return ProcessNotification(msg, d.Queue)
}

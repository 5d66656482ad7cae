package backend

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/skmehra/ecotrace/backend/ai"
	"github.com/skmehra/ecotrace/backend/engine"
	"github.com/skmehra/ecotrace/backend/queue"
	"github.com/skmehra/ecotrace/backend/server"
	"github.com/skmehra/ecotrace/backend/server/notifications/email"
	storage "github.com/skmehra/ecotrace/backend/storage/persistent"
	"github.com/skmehra/ecotrace/lib/logger"
	"go.uber.org/zap"
)

// RunBackend is the main function that sets up and runs the backend server.
func RunBackend() {

	// Load the .env file.
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables from the .env file using os.Getenv.
	signingKey := os.Getenv("JWT_SIGNING_KEY") // JWT signing key for token verification
	serverURL := os.Getenv("SERVER_URL")       // The URL where the server is running
	dbURI := os.Getenv("MONGODB_URI")          // MongoDB database URI
	dbName := os.Getenv("DB_NAME")             // The name of the MongoDB database
	smtpEmail := os.Getenv("SMTP_EMAIL")       // The email address used for sending notifications
	smtpPassword := os.Getenv("SMTP_PASS")     // The password for the email account
	redisURL := os.Getenv("REDIS_URL")         // The Redis URL for dedupe and leaderboard caching
	rabbitMQURL := os.Getenv("RABBITMQ_URL")   // The URL for the RabbitMQ message broker
	analyzerURL := os.Getenv("ANALYZER_URL")   // The URL of the AI analysis service
	logPath := os.Getenv("LOG_PATH")           // Optional rolling log file
	numProducers := 1                          // The number of notification producers
	numConsumers := 2                          // The number of notification consumers
	ctx := context.Background()

	log, err := logger.New(os.Getenv("LOG_LEVEL"), logPath)
	if err != nil {
		fmt.Println("Error initializing logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize the email service with the sender credentials.
	if _, err := email.InitEmailService(smtpEmail, smtpPassword); err != nil {
		log.Warn("email service unavailable, notifications will fail", zap.Error(err))
	}

	// Initialize the cache and the notification queue, and start its consumers.
	dedupeCache := queue.InitNotificationCache(redisURL)
	notificationQueue := queue.BuildNotificationQueue(rabbitMQURL, numProducers, numConsumers, dedupeCache)

	_, _, err = notificationQueue.StartConsumers(ctx)
	if err != nil {
		log.Fatal("error starting queue consumers", zap.Error(err))
	}

	// Initialize the persistent store and the scoring engine.
	store, err := storage.NewStorage(dbName, dbURI)
	if err != nil {
		log.Fatal("error initializing storage", zap.Error(err))
	}
	defer store.Disconnect()

	eng := engine.New(store, engine.DefaultCatalog(), &queue.Dispatcher{Queue: notificationQueue}, log)

	var analyzer ai.Analyzer
	if analyzerURL != "" {
		analyzer = ai.NewHTTPAnalyzer(analyzerURL)
	}

	// Start the HTTP server.
	srv := server.New(eng, analyzer, dedupeCache, log, signingKey)
	go func() {
		if err := srv.Start(serverURL); err != nil {
			log.Fatal("http server stopped", zap.Error(err))
		}
	}()

	// Setting up the signal interrupt handler to gracefully shut down.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	log.Info("shutting down", zap.String("signal", sig.String()))
}

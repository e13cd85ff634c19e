package main

import (
	"context"

	"banya/internal/scheduling/handler"
	"banya/internal/scheduling/repository"
	"banya/internal/scheduling/service"
	"banya/internal/scheduling/validator"
	"banya/pkg/app"
	"banya/pkg/config"
	"banya/pkg/kafka"
	kafka_config "banya/pkg/kafka/config"
)

const ServiceName = "scheduling"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Scheduling service")

	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	if err := repository.EnsureIndexes(ctx, cfg); err != nil {
		cancel()
		cfg.Log.Fatal("Failed to ensure indexes", "error", err)
	}
	cancel()

	schedulingService, producer := initServices(cfg)
	if producer != nil {
		defer producer.Close()
	}

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, handler.NewScheduleHandler(schedulingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.SchedulingService, *kafka.Producer) {
	scheduleValidator := validator.NewScheduleValidator(cfg.Log)
	repo := repository.NewMongoRepository(cfg)
	cache := service.NewAvailabilityCache(cfg.Client.Redis, cfg.AvailabilityCacheTTL, cfg.Log)

	var (
		events   service.EventPublisher
		producer *kafka.Producer
	)
	kafkaCfg := kafka_config.Load()
	if kafkaCfg.Enabled() {
		p, err := kafka.NewProducer(kafkaCfg, cfg.AppointmentTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
		}
		producer = p
		events = service.NewKafkaEventPublisher(producer, cfg.Log)
		cfg.Log.Info("Appointment events enabled", "topic", cfg.AppointmentTopic)
	} else {
		cfg.Log.Info("Kafka not configured, appointment events disabled")
	}

	schedulingService := service.NewSchedulingService(repo, scheduleValidator, cache, events, cfg)

	cfg.Log.Info("Scheduling service initialized", "database", cfg.MongoDatabaseName)
	return schedulingService, producer
}

package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"brigade/internal/contracts"
	"brigade/internal/pkg/bootstrap"
	"brigade/internal/pkg/mq"
	"brigade/internal/service/kitchen/application"
	"brigade/internal/service/kitchen/infrastructure"
	"brigade/internal/service/kitchen/interfaces"
)

const serviceName = "kitchen-service"

// main is the composition root: it builds every dependency and hands the
// wired service to bootstrap.Run.
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to yaml config")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	tracer := otel.Tracer(serviceName)

	statusWriter := mq.NewKafkaWriter(cfg.Brokers(), contracts.TopicKitchenStatusUpdates)

	tickets := infrastructure.NewGormTicketRepository(db)
	dishes := infrastructure.NewGormDishRepository(db)
	producer := infrastructure.NewStatusProducerAdapter(statusWriter)
	svc := application.NewKitchenService(tickets, dishes, producer, tracer)
	handler := interfaces.NewKitchenHandler(svc)

	creationConsumer := infrastructure.NewOrderCreationConsumer(cfg.Brokers(), rdb, svc)
	statusConsumer := infrastructure.NewWaiterStatusConsumer(cfg.Brokers(), rdb, svc)

	err = bootstrap.Run(bootstrap.AppInfo{
		ServiceName:      serviceName,
		HTTPAddr:         cfg.HTTPAddr,
		JaegerEndpoint:   cfg.JaegerEndpoint,
		RegisterHandlers: handler.RegisterRoutes,
		Runners: []func(ctx context.Context) error{
			creationConsumer.Run,
			statusConsumer.Run,
		},
		OnShutdown: []func(ctx context.Context) error{
			func(context.Context) error { return creationConsumer.Close() },
			func(context.Context) error { return statusConsumer.Close() },
			func(context.Context) error { return statusWriter.Close() },
			func(context.Context) error { return rdb.Close() },
		},
	})
	if err != nil {
		log.Fatalf("service exited with error: %v", err)
	}
}

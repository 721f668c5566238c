package main

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vlab-edu/vlab-backend/internal/course"
	"github.com/vlab-edu/vlab-backend/internal/event"
	infra "github.com/vlab-edu/vlab-backend/internal/infrastructure"
	"github.com/vlab-edu/vlab-backend/internal/infrastructure/driver"
	"github.com/vlab-edu/vlab-backend/internal/infrastructure/logging"
	"github.com/vlab-edu/vlab-backend/internal/infrastructure/uuid"
	ihttp "github.com/vlab-edu/vlab-backend/internal/interfaces/http"
	"github.com/vlab-edu/vlab-backend/internal/progress"
	"github.com/vlab-edu/vlab-backend/internal/user"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	logger = logger.With(
		zap.String("service.id", option.AppID),
	)
	defer logger.Sync()

	dbConn, err := driver.GetDBConnection(&driver.DBConfig{
		User:     option.Database.User,
		Password: option.Database.Password,
		MaxConn:  option.Database.MaxConn,
		Protocol: option.Database.Protocol,
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		Port:     option.Database.Port,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
	})
	if err != nil {
		log.Fatalf("Failed to create DB connection: %s\n", err)
	}
	rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)

	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength)
	UserRepo := user.NewUserRepository(dbConn, UUIDGenerator)
	UserUseCase := user.NewUserUseCase(UserRepo)

	catalog, err := course.DefaultCatalog()
	if err != nil {
		log.Fatalf("Failed to load the course catalog: %s\n", err)
	}

	// hydrate before the transport accepts any transition so a late load
	// cannot overwrite progress produced by early user actions
	store := progress.NewStore(catalog, logger)
	gateway := progress.NewGateway(rdb, logger)
	defer gateway.Close()
	if err := gateway.Hydrate(context.Background(), store); err != nil {
		logger.Warn("Progress hydration failed, starting with an empty store", zap.Error(err))
	}
	store.Subscribe(gateway.Enqueue)

	var publisher *event.Publisher
	if option.Broker.URI != "" {
		publisher, err = event.NewPublisher(option.Broker.URI, option.Broker.Exchange, logger)
		if err != nil {
			log.Fatalf("Failed to connect to the event broker: %s\n", err)
		}
		defer publisher.Close()
	} else {
		logger.Info("Event broker not configured, progress events will not be published")
	}

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(option.Progress.SaveRetryInterval).Do(gateway.RetryFailed)
	scheduler.StartAsync()
	defer scheduler.Stop()

	ihttp.Serve(dbConn, rdb, option, UserUseCase, UserRepo, catalog, store, publisher, logger)
}

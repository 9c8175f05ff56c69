package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/playtube/authcore/internal/api"
	"github.com/playtube/authcore/internal/controller"
	"github.com/playtube/authcore/internal/migrations"
	"github.com/playtube/authcore/internal/service"
	"github.com/playtube/authcore/internal/storage/postgres"
	"github.com/playtube/authcore/internal/storage/redis"
	"github.com/playtube/authcore/internal/util"

	_ "github.com/lib/pq"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	db, dbCleanup, err := util.NewDBConnection(logger, util.NewDatabaseConfig())
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	if err := migrations.RunMigrations(db, logger); err != nil {
		logger.Fatal(zap.Error(err))
	}

	redisClient, redisCleanup, err := util.NewRedisClient(logger, util.NewRedisConfig())
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	cleanupFuncs := []func(){dbCleanup, redisCleanup}

	tokenCfg := util.NewTokenConfig()
	userRepository := postgres.NewUserRepository(db)
	tokenService := service.NewTokenService(tokenCfg)
	passwordHasher := service.NewPasswordHasher(util.NewBcryptCost())
	alertService := service.NewSecurityAlertService(logger, util.GetWebhookURL())
	authService := service.NewAuthService(tokenService, passwordHasher, userRepository, alertService, logger)

	rlCfg := util.NewRateLimiterConfig()
	rateLimiter := redis.NewRateLimiter(redisClient, rlCfg.Limit, rlCfg.Interval, rlCfg.BlockTime)

	controller := controller.NewController(logger, authService, tokenCfg)

	apiServer := api.NewAPI(controller, authService, rateLimiter, util.NewServerConfig(), logger, cleanupFuncs)
	apiServer.Run(ctx)
}

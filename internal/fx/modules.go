package fx

import (
	"mtmath-games/internal/api"
	"mtmath-games/internal/config"
	"mtmath-games/internal/database"
	"mtmath-games/internal/localstore"
	"mtmath-games/internal/logger"
	"mtmath-games/internal/ratelimit"
	"mtmath-games/internal/repository"
	"mtmath-games/internal/server"
	"mtmath-games/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideLocalStore(cfg *config.Config, log zerolog.Logger) (*localstore.Store, error) {
	return localstore.New(cfg.LocalStateDir, log)
}

func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

func ProvideRankingsStore(repo *repository.RankingsRepository) service.RankingsStore {
	return repo
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideLocalStore),
	fx.Provide(ProvideLimiter),
	// repos
	fx.Provide(repository.NewRankingsRepository),
	fx.Provide(repository.NewArticlesRepository),
	fx.Provide(repository.NewBoardRepository),
	fx.Provide(ProvideRankingsStore),
	// api client
	fx.Provide(api.NewContentClient),
	// svc
	fx.Provide(service.NewLeaderboardService),
	fx.Provide(service.NewSubmissionService),
	fx.Provide(service.NewSessionService),
	fx.Provide(service.NewArticleService),
	fx.Provide(service.NewBoardService),
	// server
	fx.Provide(server.New),
)

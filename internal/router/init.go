package router

import (
	userapp "github.com/dimaskp/conduit-api/internal/application"
	"github.com/dimaskp/conduit-api/internal/container"
	repouser "github.com/dimaskp/conduit-api/internal/domain/repository"
	pginfra "github.com/dimaskp/conduit-api/internal/infrastructure/postgres"
	handlers "github.com/dimaskp/conduit-api/internal/interface/http"
	"github.com/dimaskp/conduit-api/internal/interface/middleware"
	"github.com/dimaskp/conduit-api/internal/router/modules"
)

type UserModuleDeps struct {
	Repo    repouser.UserRepository
	Service *userapp.Service
	Handler *handlers.UserHandler
}

func buildUserDeps() UserModuleDeps {
	repo := pginfra.NewUserRepository(container.GetPGPool())
	cfg := container.GetConfig()

	service := userapp.NewService(
		repo,
		container.GetTokenCodec(),
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetRedis(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESUsersIndex,
		container.GetRabbitPub(),
		cfg.MailSendEnabled,
	)

	handler := handlers.NewUserHandler(service, container.GetLogger())

	return UserModuleDeps{Repo: repo, Service: service, Handler: handler}
}

// InitModules wires up application modules and registers them with the router
// registry. The identity middleware runs for the whole API group so every
// handler can see the optional current user.
func InitModules(r *Registry) {
	userDeps := buildUserDeps()
	r.Use(middleware.Identity(userDeps.Repo, container.GetTokenCodec()))
	r.Add(modules.NewUserModule(userDeps.Handler))
}

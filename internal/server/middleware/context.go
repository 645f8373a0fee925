package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"

	"github.com/selmo/Tagdstiller-sub001/internal/config"
	"github.com/selmo/Tagdstiller-sub001/internal/queue"
	"github.com/selmo/Tagdstiller-sub001/pkg/artifact"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

type App struct {
	Config *config.Store
	Store  *artifact.Store
	Queue  queue.Channel
	Key    *keyfunc.Keyfunc
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(
	cfg *config.Store,
	store *artifact.Store,
	ch queue.Channel,
	key *keyfunc.Keyfunc,
) echo.MiddlewareFunc {
	app := &App{
		Config: cfg,
		Store:  store,
		Queue:  ch,
		Key:    key,
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}

// Package app assembles the HTTP application from its collaborators.  The
// server binary and the end-to-end tests build the same echo instance
// through New.
package app

import (
	"database/sql"
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/concert-calendar/internal/config"
	"github.com/iliyamo/concert-calendar/internal/handler"
	"github.com/iliyamo/concert-calendar/internal/logger"
	"github.com/iliyamo/concert-calendar/internal/middleware"
	"github.com/iliyamo/concert-calendar/internal/repository"
	"github.com/iliyamo/concert-calendar/internal/router"
	"github.com/iliyamo/concert-calendar/internal/service"
	"github.com/iliyamo/concert-calendar/internal/view"
)

// Deps are the long-lived resources created by main.  Redis and Publisher
// are optional.
type Deps struct {
	Config    config.Config
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	DB        *sql.DB
	Redis     *redis.Client
	Publisher service.EventPublisher
	Log       *logger.Logger
}

// New builds the echo instance with every route of the configured mode.
func New(d Deps) (*echo.Echo, error) {
	if d.DB == nil {
		return nil, errors.New("app: nil database")
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	cfg := d.Config

	concerts := repository.NewConcertRepo(d.DB)
	tickets := repository.NewTicketRepo(d.DB)
	users := repository.NewUserRepo(d.DB)

	cache := middleware.NewResponseCache(d.Cache, d.Redis, d.Log)
	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	concertSvc := service.NewConcertService(concerts, cache, d.Log)
	bookingSvc := service.NewBookingService(service.BookingDeps{
		DB:        d.DB,
		Concerts:  concerts,
		Tickets:   tickets,
		Publisher: d.Publisher,
		Cache:     cache,
		Mode:      cfg.Mode,
		Log:       d.Log,
	})

	renderer, err := view.New(cfg.AuthEnabled())
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = handler.NewFormValidator()
	e.HTTPErrorHandler = middleware.NewErrorHandler(d.Log)
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoMw.Recover())
	e.Use(echoMw.BodyLimit("1M"))

	router.RegisterRoutes(e, d.DB)
	router.RegisterPublic(e, handler.NewConcertHandler(concertSvc, bookingSvc, cfg.Mode), cache.Middleware(), limiter)

	if cfg.AuthEnabled() {
		ttl := time.Duration(cfg.AccessTTLMin) * time.Minute
		authSvc := service.NewAuthService(users, cfg.JWTSecret, ttl, cfg.BcryptCost, d.Log)
		e.Use(middleware.Authenticate(authSvc))
		router.RegisterAuth(e, handler.NewAuthHandler(authSvc, cfg.Env == "prod"), limiter)
	}
	router.RegisterBooking(e, handler.NewBookingHandler(bookingSvc), limiter, cfg.AuthEnabled())

	d.Log.Info("routes registered", "mode", string(cfg.Mode))
	return e, nil
}

package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/auth"
	"tradingjournal/src/handler"
	"tradingjournal/src/model"
	"tradingjournal/src/repository"
	"tradingjournal/src/service"
)

// NewRouter builds the full route tree. Split out of StartServer so tests
// can mount the router without binding a port.
func NewRouter() chi.Router {
	tradingService := service.NewTradingService()
	statsService := service.NewStatsService()
	tokens := repository.NewAccessTokenRepository()

	resolver := auth.TokenResolverFunc(func(ctx context.Context, plainText string) (*model.User, error) {
		return auth.ResolveToken(ctx, tokens, plainText)
	})

	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("healthcheck write failed")
		}
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/register", handler.RegisterHandler())
		api.Post("/auth/login", handler.LoginHandler())

		api.Group(func(private chi.Router) {
			private.Use(auth.Middleware(resolver))

			private.Get("/auth/me", handler.MeHandler())
			private.Post("/auth/logout", handler.LogoutHandler())
			private.Post("/auth/change-password", handler.ChangePasswordHandler())

			private.Route("/trading", func(trading chi.Router) {
				trading.Get("/positions", handler.DefaultSearchPositionsHandler())
				trading.Post("/positions", handler.DefaultCreatePositionHandler(tradingService))
				trading.Get("/positions/{id}", handler.DefaultGetPositionHandler())
				trading.Post("/positions/{id}/transaction", handler.DefaultAddTransactionHandler(tradingService))
				trading.Delete("/positions/{id}", handler.DefaultDeletePositionHandler(tradingService))

				trading.Get("/stats/summary", handler.DefaultStatsSummaryHandler(statsService))
			})
		})
	})

	return r
}

func StartServer(port string) {
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(),
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}

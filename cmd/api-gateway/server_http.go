package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/NordCoder/Tubely/internal/apperr"
	authtoken "github.com/NordCoder/Tubely/internal/auth"
	config "github.com/NordCoder/Tubely/internal/config/api-gateway"
	"github.com/NordCoder/Tubely/internal/obs"
	"github.com/NordCoder/Tubely/internal/services/api-gateway/auth"
	"github.com/NordCoder/Tubely/internal/services/api-gateway/httpx"
	relationsvc "github.com/NordCoder/Tubely/internal/services/api-gateway/relation"
)

func buildRouter(cfg *config.Config, logger *zap.Logger, st *store) (http.Handler, error) {
	issuer, err := authtoken.NewIssuer(authtoken.Config{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	authUC := auth.NewUseCase(st.identities, issuer, auth.Config{
		BcryptCost:             cfg.Auth.BcryptCost,
		RevokeOnPasswordChange: cfg.Auth.RevokeOnPasswordChange,
	})
	authSrv := auth.NewServer(authUC, auth.Opts{
		Logger:       logger,
		CookieDomain: cfg.Auth.CookieDomain,
		CookiePath:   cfg.Auth.CookiePath,
		CookieSecure: cfg.Auth.CookieSecure,
		AccessTTL:    cfg.Auth.AccessTTL,
		RefreshTTL:   cfg.Auth.RefreshTTL,
	})

	relUC := relationsvc.New(st.relations, st.tx, eventSink(cfg, st), nil)
	relSrv := relationsvc.NewServer(logger, relUC)

	gate := auth.Middleware(authUC, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, obs.HTTPMetrics, obs.AccessLog(logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 500*time.Millisecond)
		defer cancel()
		if err := st.ping(ctx); err != nil {
			httpx.Fail(w, req, logger, apperr.Wrap(apperr.KindUnavailable, "storage unavailable", err))
			return
		}
		httpx.OK(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})

	authSrv.Routes(r, gate)
	relSrv.Routes(r, gate)

	return obs.HTTPHandler(r, "api-gateway"), nil
}

func buildHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

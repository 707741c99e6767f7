// Package server exposes the library operations as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shiggsy365/bookstack/core"
	"github.com/shiggsy365/bookstack/core/ephemera"
	"github.com/shiggsy365/bookstack/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Library is the set of operations the API serves.
type Library interface {
	Browse(ctx context.Context, target string) (*core.FeedPage, string, error)
	CoverImage(ctx context.Context, rawURL string, width int) ([]byte, string, error)
	CheckLibrary(ctx context.Context, titles []string, author string) map[string]core.MatchResult
	SendToKindle(ctx context.Context, email, downloadURL string) (string, error)
	SearchReleases(ctx context.Context, query string) ([]ephemera.Release, error)
	RequestDownload(ctx context.Context, md5, title string) (json.RawMessage, error)
	Queue(ctx context.Context) (json.RawMessage, error)
	SearchAuthors(ctx context.Context, query string) ([]core.AuthorHit, error)
	AuthorSeries(ctx context.Context, pageURL string) (core.AuthorPage, error)
}

// Server is the HTTP front end.
type Server struct {
	router *gin.Engine
	addr   string
}

// New builds the router for lib, listening on addr when run.
func New(addr string, lib Library) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Observe())
	_ = router.SetTrustedProxies(nil)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewHandler(lib)
	h.RegisterRoutes(router.Group("/api"))

	return &Server{router: router, addr: addr}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.For(ctx).Infof("HTTP API server listening on %s", s.addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.For(ctx).Info("shutting down server")
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.For(ctx).Info("server stopped")
	return nil
}

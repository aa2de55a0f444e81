package bridge

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/scenebridge/bridgectl/internal/observability"
)

// serveAdmin exposes the read-only observability surface. It never touches
// the scene; everything here is served off bridge-side state so the admin
// endpoint cannot violate the single-execution-context constraint.
func (s *Service) serveAdmin(ctx context.Context, addr string) error {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"addr":    s.cfg.ListenAddr,
			"version": "0.0.1",
		})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"uptime": time.Since(s.started).String(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/connections", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"active":      s.clientCount.Load(),
			"connections": s.connIDs(),
		})
	})
	r.GET("/queue", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"depth":   s.queue.Depth(),
			"aliases": s.dispatcher.Identity().AliasCount(),
		})
	})

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Msgf("bridge.Service.serveAdmin listening addr=%q", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) connIDs() []string {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	out := make([]string, 0, len(s.conns))
	for client := range s.conns {
		out = append(out, client.ID())
	}
	return out
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost", "http://127.0.0.1"}
	}
	return origins
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-storefront/internal/dto"
)

const readinessTimeout = 2 * time.Second

// dependency is one backend the storefront cannot serve checkout without.
type dependency struct {
	name  string
	check func(ctx context.Context) error
}

type HealthHandler struct {
	deps []dependency
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{deps: []dependency{
		{name: "postgres", check: dbPool.Ping},
		{name: "redis", check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		{name: "rabbitmq", check: func(context.Context) error {
			if amqpConn == nil || amqpConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}},
	}}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	respondOK(c, http.StatusOK, "storefront is running", nil)
}

// Readyz reports every dependency instead of stopping at the first failure.
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	states := make(map[string]string, len(h.deps))
	var down []string
	for _, d := range h.deps {
		if err := d.check(ctx); err != nil {
			states[d.name] = "unavailable: " + err.Error()
			down = append(down, d.name)
			continue
		}
		states[d.name] = "connected"
	}

	if len(down) > 0 {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Message: "checkout unavailable, waiting for " + strings.Join(down, ", "),
			Data:    states,
		})
		return
	}
	respondOK(c, http.StatusOK, "ready to take orders", states)
}

// Metrics exposes the given gatherer in the Prometheus text format.
func Metrics(g prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

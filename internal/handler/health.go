package handler

import (
	"context"
	"net/http"
	"time"

	"sistema-servicios/internal/infra"
	"sistema-servicios/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Only the database decides the status: without Redis the API keeps serving
// (no idempotency, retries wait for the reconciliation cron). The SMTP breaker
// state and the dead letter queue sizes are informative.
func Health(db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		}
		if redisStatus == "connected" {
			dlq := gin.H{}
			for _, q := range []string{worker.QueueCajaMayor, worker.QueueEmail} {
				if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
					dlq[q] = n
				}
			}
			body["dlq"] = dlq
		}
		if smtpCB != nil {
			body["smtp"] = smtpCB.State().String()
		}
		c.JSON(status, body)
	}
}

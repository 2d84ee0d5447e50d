package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"civic-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. Dependencies are pinged concurrently,
// each bounded by healthPingTimeout; any failure answers 503 "degraded".
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			deps    = make(map[string]dependencyStatus, len(checkers))
			healthy = true
		)
		for _, checker := range checkers {
			wg.Add(1)
			go func(hc ports.HealthChecker) {
				defer wg.Done()
				st := dependencyStatus{Status: "healthy"}
				if err := hc.Ping(ctx); err != nil {
					st = dependencyStatus{Status: "unhealthy", Error: err.Error()}
				}
				mu.Lock()
				defer mu.Unlock()
				deps[hc.Name()] = st
				if st.Error != "" {
					healthy = false
				}
			}(checker)
		}
		wg.Wait()

		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":       status,
			"dependencies": deps,
			"checked_at":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

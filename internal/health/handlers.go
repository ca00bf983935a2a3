package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker probes optional runtime dependencies.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes liveness and readiness endpoints. Redis is optional: when
// no checker is wired the deployment runs without idempotency and rate
// limiting and still reports ready. A missing gateway key never is.
type Handler struct {
	Checker           Checker
	RedisTimeout      time.Duration
	GatewayConfigured bool
}

// Live reports process liveness.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	redisStatus := "disabled"
	healthy := true

	if h.Checker != nil {
		redisStatus = "ok"
		if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
			redisStatus = err.Error()
			healthy = false
		}
	}

	gatewayStatus := "ok"
	if !h.GatewayConfigured {
		gatewayStatus = "missing api key"
		healthy = false
	}

	status := map[string]string{
		"redis":   redisStatus,
		"gateway": gatewayStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

// RedisChecker adapts a ping function to the Checker interface.
type RedisChecker struct {
	Ping func(ctx context.Context) error
}

func (c RedisChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Ping(ctx)
}

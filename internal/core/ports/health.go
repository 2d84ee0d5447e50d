package ports

import "context"

// HealthChecker is one dependency checked by GET /health. A non-nil Ping
// error marks the service degraded.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

// Package handlers contains the health checker and reusable middleware of
// the content server.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("0.1.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(conn))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Error("health check failed", "message", status.Message)
//	}
//
// # Middleware
//
// BearerAuth guards the GraphQL endpoint with static API tokens. An empty
// token list disables the check:
//
//	auth := handlers.NewBearerAuth(cfg.Server.APITokens)
//	h = auth.Middleware(h)
//
// RequestSizeLimitMiddleware and SecurityHeadersMiddleware are composed with
// Chain.
package handlers

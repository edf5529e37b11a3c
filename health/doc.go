// Package health reports the gateway's ability to serve traffic.
//
// A Checker probes one dependency and reports Healthy, Degraded, or
// Unhealthy. The Aggregator fans out over all registered checkers and
// folds their results into an overall status. HTTP handlers expose the
// three standard probe endpoints.
//
// # Checkers
//
// DatabaseChecker pings the connection pool and reports pool utilization.
// CacheChecker reports result cache counters. RuntimeChecker watches
// goroutine count and heap usage.
//
// # Usage
//
//	agg := health.NewAggregator()
//	agg.Register("database", health.NewDatabaseChecker(pool, 2*time.Second))
//	agg.Register("cache", health.NewCacheChecker(store))
//	agg.Register("runtime", health.NewRuntimeChecker(health.RuntimeCheckerConfig{}))
//
//	r.Get("/healthz", health.LivenessHandler())
//	r.Get("/readyz", health.ReadinessHandler(agg))
//	r.Get("/health", health.DetailedHandler(agg))
package health

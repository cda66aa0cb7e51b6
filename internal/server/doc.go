// Package server hosts the inboxswoop web stub and its supporting HTTP
// endpoints.
//
// # Web server
//
// WebServer serves a single static page at "/" (GET and POST) together
// with its embedded script and stylesheet under /static/. Every response
// from the web mux carries no-cache headers:
//
//	Cache-Control: no-cache, no-store, must-revalidate
//	Expires: 0
//	Pragma: no-cache
//
// The page consumes no request parameters and never talks to Gmail.
//
// # Health and metrics
//
// HealthChecker provides /healthz and /readyz. Readiness turns true once the
// web server is serving and false as soon as shutdown begins. MetricsServer
// exposes the instrumentation provider's Prometheus registry on its own port.
package server

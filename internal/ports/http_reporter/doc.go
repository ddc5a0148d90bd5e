// Package http_reporter provides the HTTP handler a metrics scraper pulls
// from. It renders the gathered metric families in the Prometheus text
// exposition format.
//
// The handler is mounted on its own listener, apart from the service port.
package http_reporter

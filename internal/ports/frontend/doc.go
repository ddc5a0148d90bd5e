// Package frontend implements the single forwarding route of the frontend
// service: each inbound request is counted, forwarded to the fixed upstream
// address, timed and answered with the upstream response.
//
// The handler never touches spans. Tracing is added around it by the inbound
// middleware and by the instrumented client it is given.
package frontend

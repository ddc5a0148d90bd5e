// Package apmhttp binds tracing to the two HTTP boundaries of a service.
// Middleware opens a server span around every inbound request and Transport
// opens a client span around every outbound call, so handlers never create or
// close spans themselves.
//
// Both decorators wrap the standard library's net/http types and propagate
// W3C trace context, so spans started in one service parent the spans of the
// next.
package apmhttp

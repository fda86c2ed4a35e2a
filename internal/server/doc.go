// Package server implements the HTTP surface of the image gallery. It wires
// the gallery service, the session gate and the live-update hub into routes,
// wraps them in the request-id, logging, rate-limit, security-header and
// compression middleware, and provides lifecycle helpers used by tests and
// the production binary.
package server

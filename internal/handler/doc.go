// Package handler implements the HTTP API for ductflow.
//
// # Routes
//
//	GET    /api/networks                      list stored networks
//	POST   /api/networks?format=yaml|json     import a network document
//	GET    /api/networks/{id}                 fetch a network document
//	GET    /api/networks/{id}/export?format=  download in a codec format
//	DELETE /api/networks/{id}                 remove a network
//	GET    /api/networks/{id}/nodes/{node}    fetch one node
//	POST   /api/networks/{id}/airflow         {"start": "D1"} -> total airflow
//	GET    /events                            Server-Sent Events
//	GET    /metrics                           Prometheus metrics
//	GET    /healthz                           liveness
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure. Unknown
// networks and nodes map to 404, traversal failures and disallowed start
// nodes to 422, and malformed documents or request bodies to 400.
package handler

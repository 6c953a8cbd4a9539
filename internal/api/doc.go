// Package api contains the HTTP handlers for the task, tool and quota
// endpoints, plus the request/response DTOs that keep domain types off
// the wire.
package api

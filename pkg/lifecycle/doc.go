// Package lifecycle coordinates long-running services through a shared
// PREPARE -> ONLINE -> CLEANUP -> EXIT lifecycle, bringing groups of
// interdependent services up and down in dependency order with barrier
// synchronization between layers, cooperative cancellation, rollback on
// partial failure, and runtime add/remove of services.
//
// A Service declares its id and its relationship to other services
// (Dependencies, Before, After). The Controller resolves a batch of
// services into dependency layers, spawns one goroutine per service, and
// walks every layer through PREPARE, gating each layer on a ServiceContext
// barrier before starting the next. Once every layer is past PREPARE it
// dispatches ONLINE to all services at once, with no per-layer barrier, and
// on shutdown walks the layers through CLEANUP in reverse order.
//
// Log lines from this package go through pkg/logging under the "Lifecycle"
// subsystem.
package lifecycle

// Package client contains the client-side building blocks for talking to the
// QuickSend backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     upload issuance, completion, cancellation and health.
//  2. An HTTP+JSON implementation (see HTTPClient) that maps error responses
//     back to the sentinel errors in internal/common, including the
//     actionable *common.LimitError for tier violations.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable; unexpected statuses wrap ErrServer.
// Context cancellation is preserved, so errors.Is(err, context.Canceled)
// still holds for aborted calls.
package client

// Package app wires configuration, the API session, polling and the UI into
// the cookbook terminal client.
//
// # Overview
//
// app is the composition root. Run loads settings, builds a Session around
// the authenticated API client, starts the background poller and hands the
// shared state store to the TUI.
//
//  1. Load dotenv files, then ~/.config/cookbook/config.toml with env overrides
//  2. Open the log file (the TUI owns stdout and stderr)
//  3. Build the Session: credential store, api.Client, state.Store
//  4. Restore a stored login and populate the store
//  5. Launch the poller goroutine
//  6. Run the TUI until the user quits or the context is cancelled
//
// # Components
//
//   - app.go: Run
//   - session.go: Session, which owns the client and registers the
//     session-expired handler
//   - poller.go: background refresh of cookbooks and visible recipes
//
// # Data Flow
//
//	Run()
//	 ├─> config.Load()
//	 ├─> NewSession()      api.Client + credentials.Store + state.Store
//	 ├─> Session.Restore() read stored tokens
//	 ├─> StartPoller()     GetCookbooks / GetRecipes -> store
//	 └─> ui.Run()          reads store.Snapshot()
//
// # Polling Behavior
//
// The poller refreshes every 15 seconds by default. Temporary problems
// (timeouts, connection failures, server errors) double the wait on each
// consecutive failure up to 30 seconds. While the session is expired the
// poller idles until the user signs in again, so an expired refresh token
// triggers at most one session-expired notification.
//
// # Error Handling
//
// Configuration, logging and credential store errors are fatal and returned
// from Run. API problems are never fatal: they are recorded on the store and
// shown by the UI.
package app

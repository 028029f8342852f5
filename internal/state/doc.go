// Package state provides thread-safe state management for the cookbook client.
//
// # Overview
//
// The Store shares the latest cookbook page, recipes and session status
// between the background poller, the API client's session-expired handler,
// and the UI.
//
//	Producers:                         Consumer (UI):
//	┌──────────────────────┐          ┌──────────────────┐
//	│ poller               │          │                  │
//	│  UpdateCookbooks()   │─────────→│ store.Snapshot() │
//	│ api session handler  │ (mutex)  │      ↓           │
//	│  MarkSessionExpired()│          │  render UI       │
//	└──────────────────────┘          └──────────────────┘
//
// # Update Semantics
//
// UpdateCookbooks and UpdateRecipes replace the stored page on success. On
// failure the previous data is kept, LastProblem records the problem and
// ConsecutiveFailures increments; two or more failures mark the snapshot
// offline.
//
// RecordProblem stores a problem from a user action (create, delete, invite)
// without affecting the failure count.
//
// # Session Expiry
//
// MarkSessionExpired is registered as the API client's session-expired
// handler. Several requests failing to refresh at once may call it
// concurrently; only the first call flips SessionExpired and the rest are
// no-ops. SignedIn clears it.
//
// # Defensive Copying
//
// Snapshot returns cloned slices and a copied Problem, so the UI can hold a
// snapshot while the poller writes the next one.
//
// The zero Store is ready to use.
package state

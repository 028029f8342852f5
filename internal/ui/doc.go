// Package ui provides the terminal client for browsing cookbooks.
//
// # Architecture Overview
//
// The UI is a single bubbletea program. Model owns every widget and is
// rebuilt by value on each Update, so there is no shared mutable state
// between the render loop and network calls: API requests run as tea.Cmd
// functions and report back through messages.
//
//   - ui.go: Options, the Backend interface and Run
//   - model.go: screens, key handling and the commands that call the API
//   - view.go: rendering with lipgloss
//   - keys.go: key bindings and help text
//   - theme.go: color themes
//   - problems.go: user-facing wording for each problem kind
//
// # Screens
//
// Four screens are available:
//
//   - Login: email and password form
//   - Cookbooks: paged table of the user's cookbooks
//   - Recipes: recipes of the selected cookbook
//   - Create: title prompt for a new cookbook
//
// # Data Flow
//
// Results of API calls are written to the shared state.Store, which the
// background poller also feeds. A tick re-reads the store every second so the
// screen reflects poller updates. When the store reports that the session
// expired the UI drops back to the login screen.
//
// # Problems
//
// Failures arrive as classified api.Problem values. The latest one is shown as
// a banner using ProblemMessage; login failures are shown inline on the form.
//
// # Themes
//
// Press T to cycle themes. The choice is saved to the preferences file.
package ui

// Package config handles loading and parsing the cookbook client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/cookbook/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//  5. Apply COOKBOOK_API_URL, COOKBOOK_TIMEOUT_MS and COOKBOOK_LOG_LEVEL
//
// LoadEnv can be called first to populate the environment from .env files.
// Variables already present in the environment win over the files.
//
// # TOML Format
//
//	api_url = "https://cookbook.example.com/api"
//	timeout_ms = 10000
//	credentials_path = "~/.local/share/cookbook/credentials.toml"
//	refresh_path = "/Users/refresh"
//	unprotected_paths = ["/Users/login", "/Users/register"]
//	coalesce_refresh = true
//	log_level = "info"
//	log_format = "text"
//
// All fields are optional. Tilde expansion is performed for credentials_path.
//
// coalesce_refresh defaults to true. The server issues single-use refresh
// tokens, so two requests that hit 401 together and refresh separately would
// race: the loser presents a spent token and the session expires. Setting it
// to false restores one refresh per rejected request.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, TOML parse errors, and a non-numeric COOKBOOK_TIMEOUT_MS.
// Missing config files are not an error.
package config

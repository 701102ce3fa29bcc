// Package shared holds helpers used across packages that belong to no
// single layer. testutil captures slog output so tests can assert on the
// messages and attributes a component logs.
package shared

// Package shared provides utilities used across the codebase that do not
// belong to any single domain or layer. Currently it holds testutil, the
// common test fixture and log-capture helpers.
package shared

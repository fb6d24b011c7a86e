// Package file provides the TOML configuration store kept in the docmind
// config directory (~/.docmind/config.toml by default).
package file

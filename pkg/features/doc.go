// Package features evaluates feature flags for a distinct id.
//
// AllEnabled is used when no flag file is configured. FileFlags reads a YAML
// document and reloads it when the file changes:
//
//	default_enabled: false
//	flags:
//	  subscriptions:
//	    enabled: true
//	    allow: ["4f0c..."]   # always enabled for these ids
//	    deny: ["anonymous"]  # always disabled for these ids
//
// Deny wins over allow. Flags missing from the file use default_enabled.
package features

// Package types holds values shared by every datablast component.
package types

// Version is the canonical project version reported by the CLI.
const Version = "0.3.0"

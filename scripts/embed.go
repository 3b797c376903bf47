// Package scripts holds the built-in lint rules run by the Risor runtime.
package scripts

import "embed"

// FS contains lint/*.risor.
//
//go:embed lint/*.risor
var FS embed.FS

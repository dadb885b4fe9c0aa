// Package schemasassets provides embedded JSON schemas for standalone binary behavior.
//
// Schemas are embedded at compile time so job validation works regardless of
// the working directory or installation location.
package schemasassets

import _ "embed"

// JobSchema is the embedded enumeration job JSON schema.
//
//go:embed job.schema.json
var JobSchema []byte

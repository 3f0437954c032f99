// Package db embeds the schema and the sample catalog.
package db

import _ "embed"

// Schema creates every table. All statements are idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// SampleProducts is the JSON catalog loaded by seed-db when no file is
// given and by the memory backend on startup.
//
//go:embed seed/products.json
var SampleProducts []byte

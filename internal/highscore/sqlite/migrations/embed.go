package migrations

import "embed"

// FS contains the embedded high-score schema.
//
//go:embed *.sql
var FS embed.FS

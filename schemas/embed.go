// Package schemas holds the JSON Schemas for the pipeline's external record
// formats and exposes them as embedded strings so validation needs no
// filesystem access at runtime.
package schemas

import _ "embed"

// CompanyRecordSchema is the schema every JSONL input line must satisfy.
//
//go:embed company_record.schema.json
var CompanyRecordSchema string

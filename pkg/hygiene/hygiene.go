// Package hygiene screens ingested free text for injection payloads.
// Findings are telemetry only: every query in the engine binds parameters,
// so a hit is logged and counted, never used to reject an event.
package hygiene

import (
	"sync/atomic"

	libinjection "github.com/corazawaf/libinjection-go"
)

// Finding describes one suspicious value seen during ingestion.
type Finding struct {
	Field       string // which ingest field carried the value
	Kind        string // "sqli" or "xss"
	Fingerprint string // libinjection fingerprint, empty for xss
}

// Auditor runs libinjection checks over ingest fields and keeps running
// counts of what it has seen. Safe for concurrent use.
type Auditor struct {
	sqliHits atomic.Int64
	xssHits  atomic.Int64
}

// NewAuditor returns an Auditor with zeroed counters.
func NewAuditor() *Auditor {
	return &Auditor{}
}

// Check scans one field value and returns findings for any pattern
// detected. A clean value returns nil.
func (a *Auditor) Check(field, value string) []Finding {
	if value == "" {
		return nil
	}

	var findings []Finding

	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		a.sqliHits.Add(1)
		findings = append(findings, Finding{
			Field:       field,
			Kind:        "sqli",
			Fingerprint: string(fingerprint),
		})
	}

	if libinjection.IsXSS(value) {
		a.xssHits.Add(1)
		findings = append(findings, Finding{
			Field: field,
			Kind:  "xss",
		})
	}

	return findings
}

// SQLiHits returns the cumulative count of SQL injection patterns seen.
func (a *Auditor) SQLiHits() int64 {
	return a.sqliHits.Load()
}

// XSSHits returns the cumulative count of XSS patterns seen.
func (a *Auditor) XSSHits() int64 {
	return a.xssHits.Load()
}

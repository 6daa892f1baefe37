// Package fin provides the financial data model shared by every finflow package.
//
// This package contains types and pure helpers only. All other internal
// packages import fin; fin imports nothing internal.
//
// Key design constraints:
//   - Monetary fields are nullable (*float64); nil means "not reported"
//   - Field paths form a closed Section x Attribute enumeration (see Path)
//   - All JSON tags use snake_case
//   - Audit ordering uses the per-run Seq, never timestamps
package fin

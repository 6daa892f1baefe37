// Package harness runs YAML scenarios through the workflow engine and checks
// their outcomes.
//
// # Scenario Format
//
//	name: imbalance_fixed_by_review
//	description: "A reviewer fixes equity and the run completes"
//	extraction:
//	  period: "2024-12-31"
//	  currency: MXN
//	  fields:
//	    - { path: balance.total_assets, value: 100, confidence: 0.9 }
//	start:
//	  status: NEEDS_REVIEW
//	steps:
//	  - review:
//	      corrections:
//	        - { path: balance.shareholders_equity, new_value: 40 }
//	    expect: { status: READY }
//	  - whatif:
//	      scenario: stress
//	      changes:
//	        - { path: balance.total_liabilities, factor: 1.5 }
//	assertions:
//	  - { type: final_status, status: COMPLETED }
//	  - { type: ratio, ratio: debt_to_equity, value: 1.5 }
//
// The extraction block is served by a fixed adapter, so scenarios need no
// model access. Setting extraction_error instead makes the adapter fail.
//
// # Assertion Types
//
//   - final_status: the persisted run status
//   - ratio: a baseline ratio, or a what-if ratio when scenario is set
//   - field: a value of the final record
//   - issues: the issue codes of the last review payload, in order
//   - node_order: the node of every checkpoint, in order
//   - event_order: the lifecycle events published, in order
//   - audit_count: the number of audit entries
//   - degraded: the degradation reasons recorded on the run
//
// # Deterministic Execution
//
// Every scenario runs against a fresh in-memory checkpoint store with a
// step clock starting at testutil.Epoch and a fixed run id, so snapshots
// compare byte for byte across runs.
package harness

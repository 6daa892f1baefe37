// Package engine implements the finflow document workflow.
//
// A run moves through a fixed state machine:
//
//	parse → extract → validate → review_gate → ratios → done
//	                      ↑           │
//	                      └─ apply_feedback ←┘ (after Resume)
//
// The review gate is the only suspension point. A suspended run is nothing
// more than its persisted snapshot with Next set to apply_feedback; Resume
// re-enters the machine from that snapshot. There is no in-memory
// continuation, so a run may wait for its reviewer across process restarts.
//
// PERSISTENCE:
//
// A checkpoint is written at every node boundary through checkpoint.Store.
// Writes are compare-and-set on the run's Version, so two processes racing
// on one run cannot both commit; the loser sees a PERSISTENCE_FAILURE
// wrapping checkpoint.ErrConflict. Within a process, operations on the same
// run are serialized by a keyed mutex. Different runs never contend.
//
// A failed write leaves the run at its last committed node boundary with
// status RUNNING. Continue picks such a stalled run up from that node; nodes
// that committed earlier are not run again.
//
// DEGRADATION:
//
// Parse, upload and extraction failures do not fail a run. The node logs the
// failure, records a reason in Run.Degraded and continues with empty input,
// which the gate then routes to a reviewer. Only persistence failures and a
// cancelled caller context are returned to the caller.
package engine

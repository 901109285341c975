// Package store provides SQLite-backed durable storage for goals and the
// trash.
//
// The store holds five tables:
//   - goals: one row per live goal
//   - schedules: the goal's cadence, one row per goal
//   - questions: prompts owned by a goal
//   - data_points: logged responses owned by a goal
//   - trash_items: single-goal snapshots awaiting restore or purge
//
// # Invariants Enforced by Schema
//
//   - Identifiers are UNIQUE per table; a goal id is live at most once.
//   - created_at <= updated_at on every goal (CHECK constraint).
//   - A data point's question must belong to the data point's goal
//     (composite foreign key on (goal_id, question_id)).
//   - Deleting a goal cascades to its schedule, questions and data points.
//
// # Ordering
//
// Rows carry a seq INTEGER assigned on insert. Reads order goals by
// created_at then seq, questions by seq, and data points by timestamp then
// seq, so repeated exports of the same state are byte-identical.
//
// Timestamps are stored as fixed-width UTC text (nanosecond precision) so
// lexical comparison in SQL matches chronological order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity and cascades
package store

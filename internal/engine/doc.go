// Package engine implements the export, import and trash operations over a
// store.
//
// All mutating operations (Import, MoveToTrash, RestoreFromTrash,
// PermanentlyDelete, PurgeOldTrashItems) are serialized by the Engine and run
// as single all-or-nothing store transactions. Export holds a read lock and
// reads the whole store in one transaction, so it never observes a half-applied
// mutation.
//
// Once a transaction begins it runs to completion: caller cancellation is
// detached from the transaction context.
//
// Notification scheduling happens after commit and is best-effort: a
// scheduler failure is logged and reported, never rolled back.
package engine

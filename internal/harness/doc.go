// Package harness runs keepsake scenarios end to end against a scratch
// store and compares their transcripts with golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: merge_skip_conflicting
//	description: "What this scenario exercises"
//	now: 2024-04-01T12:00:00Z
//	steps:
//	  - op: import
//	    payload: payloads/laptop.json
//	    replace: true
//	  - op: merge
//	    payload: payloads/phone.json
//	    strategy: skipConflicting
//	    commit: true
//	  - op: trash
//	    goal: g1
//	  - op: restore
//	    trash: trash-1
//	    error: goal_already_exists
//	expect:
//	  goals: [g1, g2]
//	  trash: []
//
// Payload paths are relative to the scenario file.
//
// # Operations
//
//   - import: decode payload and import it (replace selects replace-all)
//   - export: export the store
//   - merge: merge the store's export (or primary, when set) with payload;
//     commit imports the result over the store
//   - trash, restore, delete, purge: the trash operations
//   - advance: move the scenario clock forward by days
//
// A step with error set must fail with that error kind: goal_already_exists,
// not_found, store, malformed or unsupported_version.
//
// # Golden Files
//
// RunWithGolden renders the transcript and final state as text and compares
// it with testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness

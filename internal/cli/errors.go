package cli

import (
	"errors"

	"github.com/roach88/keepsake/internal/engine"
	"github.com/roach88/keepsake/internal/payload"
)

// errMergeConflicts is returned when a stop-on-conflict merge found
// conflicts. The report has already been written to stdout.
var errMergeConflicts = errors.New("merge stopped on conflicts")

// errCommitDropsGoals is returned when committing a merge would delete live
// goals that neither merge input carries.
var errCommitDropsGoals = errors.New("store has goals missing from the merge inputs")

type errorDetails struct {
	Hint string
	Data any
}

// describeError maps an error to a stable code, a message and an optional
// retry hint.
func describeError(err error) (string, string, *errorDetails) {
	msg := err.Error()
	switch {
	case engine.IsGoalAlreadyExists(err):
		return "GOAL_ALREADY_EXISTS", msg, &errorDetails{
			Hint: "import with --replace, or trash the live goal before restoring",
		}
	case engine.IsNotFound(err):
		return "NOT_FOUND", msg, &errorDetails{Hint: "list trash items with 'keepsake trash list'"}
	case engine.IsStoreFailure(err):
		return "STORE_TRANSACTION", msg, &errorDetails{Hint: "nothing was changed; retry the operation"}
	case payload.IsUnsupportedVersion(err):
		return "UNSUPPORTED_VERSION", msg, &errorDetails{Hint: "upgrade keepsake to read this payload"}
	case payload.IsMalformed(err):
		return "MALFORMED_PAYLOAD", msg, nil
	case errors.Is(err, errCommitDropsGoals):
		return "COMMIT_WOULD_DELETE", msg, &errorDetails{
			Hint: "export the store again and merge that file as <primary>",
		}
	case errors.Is(err, errMergeConflicts):
		return "MERGE_CONFLICTS", msg, &errorDetails{
			Hint: "rerun with --strategy skip-conflicting to merge everything else",
		}
	}
	if GetExitCode(err) == ExitCommandError {
		return "COMMAND_ERROR", msg, nil
	}
	return "ERROR", msg, nil
}

package iproute

import "fmt"

// InvalidArgumentError reports input that fails validation before any
// store mutation. Recoverable: fix the input and retry.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// NotFoundError reports a getter applied to a route key absent from the
// currently-effective table (the real store, or the staging set during a
// resync session). By policy this is a programming error: the manager
// panics with it instead of returning a sentinel. Callers that expect
// absence must use Exists first.
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("route %s does not exist in the effective table", keyString(e.Key))
}

// ReentrantResyncError reports a state-machine violation on the resync
// session: opening a session while one is open, or re-scoping the manager
// mid-session. Fatal caller misuse; the manager panics with it.
type ReentrantResyncError struct {
	Op string
}

func (e *ReentrantResyncError) Error() string {
	return fmt.Sprintf("%s: resync session already open", e.Op)
}

// TagMismatchError reports a write referencing a route whose tag does not
// match the manager's scoped tag. Fatal caller misuse; the manager panics
// with it.
type TagMismatchError struct {
	Key   Key
	Tag   uint32 // the record's tag
	Scope uint32 // the manager's scoped tag
}

func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("route %s has tag %d, manager is scoped to tag %d",
		keyString(e.Key), e.Tag, e.Scope)
}

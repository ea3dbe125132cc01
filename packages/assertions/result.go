package assertions

import "errors"

// ErrSchemaUnreadable is returned through Result.Err when a JSON schema
// cannot be read or compiled.
var ErrSchemaUnreadable = errors.New("json schema unreadable")

type Result struct {
	Passed  bool
	Message string
	// Err is set only for conditions that should abort a test rather than
	// fail it.
	Err     error
	Target  string
	Matcher string
}

func pass() Result {
	return Result{Passed: true}
}

func fail(message string) Result {
	return Result{Message: message}
}

package api

import "errors"

// ErrConflict marks operations rejected because the task is currently
// being processed. The HTTP layer maps it to 409.
var ErrConflict = errors.New("conflict")

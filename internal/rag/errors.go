package rag

import "errors"

// ErrBadRequest indicates malformed or out-of-bounds client input.
// Validation failures are caught before any provider call is made, so
// a rejected request never costs an external call.
var ErrBadRequest = errors.New("bad request")

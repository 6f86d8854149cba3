// Package errors provides structured error handling with error codes for traindepot.
//
// All services construct errors through this package so that every failure
// carries a (code, message, cause) triple with a fixed argument order.
//
// Creating errors:
//
//	err := errors.New(errors.ErrCodeConflict, "user already exists")
//	err := errors.Wrap(dbErr, errors.ErrCodeInternal, "failed to query database")
//	err := errors.NotFound("user", email)
//
// Inspecting errors:
//
//	if errors.IsCode(err, errors.ErrCodeChallengeExpired) { ... }
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
//
// The authentication-failure codes (invalid credentials, expired or
// already-consumed challenges, bad passcodes) map to distinct codes for
// internal logging but must never reach a caller verbatim; handlers
// collapse them with IsAuthFailure before responding.
package errors

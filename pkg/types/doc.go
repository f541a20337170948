// Package types defines the Repository contract shared by every backend,
// the pagination and search request types, backend configuration, and the
// error taxonomy callers translate into responses.
//
// Only two domain errors exist: *NotFoundError and *IntegrityError. Test
// for them with errors.Is against ErrNotFound and ErrIntegrity. Any other
// error is an infrastructure failure.
package types

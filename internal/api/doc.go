// Package api exposes the task and account operations over HTTP/JSON.
//
// Handlers decode requests, call the services and translate their errors to
// status codes through MapErrorToStatusCode and GetSafeErrorMessage. Error
// bodies never carry raw error text; the detail goes to the request logger,
// redacted.
package api

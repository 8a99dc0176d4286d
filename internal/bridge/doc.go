// Package bridge orchestrates the end-to-end request flows: linking an
// account after the OAuth callback, refreshing the access credential, and
// running the multi-calendar aggregation for a user's day or week window.
//
// It composes the credential store, the OAuth exchanger, and the calendar
// aggregation core; the HTTP layer in internal/server is a thin shell over
// this package.
package bridge

// Package google implements the OAuth2 credential exchange against Google's
// authorization and token endpoints.
//
// It builds consent URLs for the authorization-code flow and exchanges codes
// and refresh tokens for short-lived access tokens, classifying provider
// error payloads whether they arrive with a failure status or embedded in a
// success body. It never persists credentials; a rotated refresh token is
// surfaced to the caller.
package google

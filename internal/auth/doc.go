// Package auth issues and validates the bearer tokens that guard climate
// control on the HTTP API.
//
// Tokens are HS256 JWTs signed with the configured API secret. They carry a
// subject (who issued the command) and a scope. Only ScopeControl grants
// access to state-changing endpoints; read endpoints are never guarded.
package auth

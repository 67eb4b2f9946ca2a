// Package auth issues and verifies the bearer tokens that protect the
// admin API.
//
// Tokens are HS256-signed JWTs carrying a subject and a role. There are
// no user accounts: operators mint tokens with `iotadmin token` and the
// API validates them by signature only.
//
// Roles map statically to permissions:
//
//	viewer  read objects, states and browse results
//	editor  viewer + edit smart names, write states
//	admin   editor + adapter commands (update, debug, updateValidTill)
package auth

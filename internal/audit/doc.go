// Package audit records who rewired the audio graph through the API.
//
// Every mutation (an explicit connection created or deleted, a routing
// pass requested) becomes one row of the audit_logs table, tagged with
// the subject of the bearer token that authorised it.
package audit

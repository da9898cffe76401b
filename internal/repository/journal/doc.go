// Package journal stores the access log and the security audit in SQLite.
//
// The Store is written by the recognition scheduler through the AccessLog and
// AuditLog sinks and read by the logs and audit commands.
package journal

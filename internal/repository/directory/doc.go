// Package directory persists the identity directory as a YAML file.
//
// The FileRepository is read by the directory service on startup and whenever
// the file changes, and written by the init command when seeding a sample.
package directory

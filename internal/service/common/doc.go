// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the terminal status API with call
// timeouts and the actor name written into security audit entries.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

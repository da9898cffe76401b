// Package terminal implements the gRPC status API of the access terminal.
//
// The API has no generated stubs: messages are protobuf well-known types
// (google.protobuf.Empty requests, google.protobuf.Struct events) and the
// service descriptor is declared by hand in desc.go.
package terminal

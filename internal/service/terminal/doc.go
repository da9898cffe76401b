// Package terminal assembles and runs the access terminal daemon.
//
// Run loads the settings file, opens the journal, loads the identity
// directory and then runs the recognition scheduler, the directory refresher,
// the gRPC status API and the optional ops endpoints until the context ends.
package terminal

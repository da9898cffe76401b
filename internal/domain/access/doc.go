// Package access contains the core domain types of the access terminal.
//
// It defines identities read from the directory, the single outcome a
// recognition cycle produces, the terminal states and the journal entries
// written when a state is entered. Resolve maps an outcome to the next state
// and its side effects without performing any I/O.
package access

// Package config defines the terminal settings and helpers to load, validate
// and save them in YAML format.
//
// Config carries the listen addresses, journal and directory locations, the
// recognition cadence (tick, deadline, suppression windows) and detector policy.
package config

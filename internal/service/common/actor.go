//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
)

// SystemUser is the audit user of events raised by the terminal itself.
const SystemUser = "System-AI"

// DetectActor names this terminal for the audit trail as "System-AI@<hostname>".
func DetectActor() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	return ActorFor(hostname), nil
}

// ActorFor builds the audit user for a terminal host.
func ActorFor(hostname string) string {
	if hostname == "" {
		return SystemUser
	}

	return SystemUser + "@" + hostname
}

package broker

import (
	"fmt"
	"net"
	"strings"

	"brokerd/internal/topic"
)

// registration is a parsed subscriber registration: a filter topic, a
// destination endpoint, and the persistence mode.
type registration struct {
	filter     topic.Topic
	host       string
	port       string
	persistent bool
}

func (r registration) endpoint() string {
	return net.JoinHostPort(r.host, r.port)
}

// parseRegistration parses "<filter>|<host>:<port>|<mode>". This is
// the newer, three-part wire format spec.md §6 documents; brokerd does
// not accept the older two-part "<filter>|<host>:<port>" line some
// historical subscriber clients sent with no mode field — see
// DESIGN.md's Open Question decision.
func parseRegistration(line string) (registration, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 3 {
		return registration{}, fmt.Errorf("malformed registration %q: expected 3 '|'-separated parts, got %d", line, len(parts))
	}

	filter, err := topic.Parse(parts[0])
	if err != nil {
		return registration{}, fmt.Errorf("invalid filter %q: %w", parts[0], err)
	}

	host, port, err := net.SplitHostPort(parts[1])
	if err != nil {
		return registration{}, fmt.Errorf("invalid endpoint %q: %w", parts[1], err)
	}

	var persistent bool
	switch parts[2] {
	case "p":
		persistent = true
	case "-":
		persistent = false
	default:
		return registration{}, fmt.Errorf("invalid mode %q: expected 'p' or '-'", parts[2])
	}

	return registration{filter: filter, host: host, port: port, persistent: persistent}, nil
}

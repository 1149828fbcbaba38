package topic

import (
	"fmt"
	"strings"
)

// Message is a single published entry: a concrete topic, an opaque
// value, and the broker-assigned arrival timestamp. Publishers do not
// set Timestamp — the log stamps it under its mutex at append time.
type Message struct {
	Topic     Topic
	Value     string
	Timestamp int64
}

// ParsePublisherFrame parses one ingress frame of the form
// "<topic>|<value>". There must be exactly one '|' separator; the
// value is everything after it, verbatim.
func ParsePublisherFrame(frame string) (Topic, string, error) {
	i := strings.IndexByte(frame, '|')
	if i < 0 {
		return Topic{}, "", fmt.Errorf("topic: malformed frame %q: missing '|' separator", frame)
	}
	if strings.IndexByte(frame[i+1:], '|') >= 0 {
		return Topic{}, "", fmt.Errorf("topic: malformed frame %q: more than one '|' separator", frame)
	}
	t, err := Parse(frame[:i])
	if err != nil {
		return Topic{}, "", err
	}
	return t, frame[i+1:], nil
}

// Forward renders the exact textual envelope a subscriber receives for
// one delivered message: (topic: <original>, value: "<value>").
func (m Message) Forward() string {
	return fmt.Sprintf("(topic: %s, value: \"%s\")", m.Topic.String(), m.Value)
}

package conversation

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single entry of a conversation. Messages are values and are
// never modified after they have been appended.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Stats aggregates the store over all owners.
type Stats struct {
	Conversations int
	Messages      int
}

// trim bounds msgs to limit entries. System messages always survive and are
// moved in front of the most recent non-system messages.
func trim(msgs []Message, limit int) []Message {
	if len(msgs) <= limit {
		return msgs
	}
	var system, others []Message
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			others = append(others, m)
		}
	}
	keep := limit - len(system)
	if keep < 0 {
		keep = 0
	}
	if len(others) > keep {
		others = others[len(others)-keep:]
	}
	out := make([]Message, 0, len(system)+len(others))
	out = append(out, system...)
	return append(out, others...)
}

func withoutRole(msgs []Message, role Role) []Message {
	out := msgs[:0]
	for _, m := range msgs {
		if m.Role != role {
			out = append(out, m)
		}
	}
	// drop references held past the new length
	for i := len(out); i < len(msgs); i++ {
		msgs[i] = Message{}
	}
	return out
}

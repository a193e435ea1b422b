package chatclient

import "sort"

// View is the client-side projection of the event stream.
type View struct {
	SelfID   string
	Users    []User
	Messages []Message

	// Typing is the global typing snapshot, user id to username.
	Typing map[string]string

	// Pairs holds private typing snapshots keyed by the other member of the pair.
	Pairs map[string]map[string]string
}

// Reduce applies e to v and returns the new view. v is not modified. Messages
// with an id are deduplicated; system notices (id 0) are always appended.
func Reduce(v View, e Event) View {
	switch e.Type {
	case TypeJoined:
		if e.Joined != nil {
			v.SelfID = e.Joined.SelfID
			v.Users = append([]User(nil), e.Joined.Users...)
		}

	case TypePresenceChanged:
		v.Users = append([]User(nil), e.Users...)

	case TypeMessage:
		if e.Message != nil {
			v.Messages = upsertMessage(v.Messages, *e.Message)
		}

	case TypeTypingChanged:
		if e.Typing == nil {
			break
		}
		snapshot := copyNames(e.Typing.Users)
		if e.Typing.RecipientID == "" {
			v.Typing = snapshot
			break
		}
		pairs := make(map[string]map[string]string, len(v.Pairs)+1)
		for k, names := range v.Pairs {
			pairs[k] = names
		}
		pairs[e.Typing.RecipientID] = snapshot
		v.Pairs = pairs

	case TypeReceipt:
		if e.Receipt != nil {
			v.Messages = applyReceipt(v.Messages, *e.Receipt)
		}
	}

	return v
}

func upsertMessage(messages []Message, m Message) []Message {
	out := make([]Message, len(messages), len(messages)+1)
	copy(out, messages)

	if m.ID > 0 {
		for i := range out {
			if out[i].ID == m.ID {
				out[i] = m
				return out
			}
		}
	}
	return append(out, m)
}

func applyReceipt(messages []Message, r Receipt) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)

	for i := range out {
		if out[i].ID == r.MessageID {
			out[i].ReadBy = append([]string(nil), r.ReadBy...)
		}
	}
	return out
}

func copyNames(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Conversation returns the messages of one thread in arrival order. An empty
// selected is the global feed; otherwise the private thread with that user.
func (v View) Conversation(selected string) []Message {
	var out []Message
	for _, m := range v.Messages {
		if selected == "" {
			if !m.IsPrivate {
				out = append(out, m)
			}
			continue
		}

		if !m.IsPrivate {
			continue
		}
		if (m.SenderID == v.SelfID && m.RecipientID == selected) || (m.SenderID == selected && m.RecipientID == v.SelfID) {
			out = append(out, m)
		}
	}
	return out
}

// TypingNames returns the sorted usernames typing in a thread, excluding self.
func (v View) TypingNames(selected string) []string {
	snapshot := v.Typing
	if selected != "" {
		snapshot = v.Pairs[selected]
	}

	var names []string
	for id, name := range snapshot {
		if id != v.SelfID {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

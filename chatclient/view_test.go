package chatclient

import (
	"fmt"
	"testing"
)

func messageEvent(m Message) Event {
	return Event{Type: TypeMessage, Message: &m}
}

func TestReduceJoinAndPresence(t *testing.T) {
	var v View
	v = Reduce(v, Event{Type: TypeJoined, Joined: &Joined{SelfID: "a", Users: []User{{ID: "a", Username: "alice"}}}})
	v = Reduce(v, Event{Type: TypePresenceChanged, Users: []User{{ID: "a", Username: "alice"}, {ID: "b", Username: "bob"}}})

	if v.SelfID != "a" {
		t.Fatalf("SelfID = %q, want a", v.SelfID)
	}
	if len(v.Users) != 2 || v.Users[1].Username != "bob" {
		t.Fatalf("Users = %+v", v.Users)
	}
}

func TestReduceDeduplicatesById(t *testing.T) {
	var v View
	v = Reduce(v, messageEvent(Message{ID: 1, Body: "hi"}))
	v = Reduce(v, messageEvent(Message{ID: 1, Body: "hi"}))
	v = Reduce(v, messageEvent(Message{System: true, Body: "bob joined the chat"}))
	v = Reduce(v, messageEvent(Message{System: true, Body: "bob joined the chat"}))
	v = Reduce(v, messageEvent(Message{ID: 2, Body: "there"}))

	var got []string
	for _, m := range v.Messages {
		got = append(got, m.Body)
	}
	if want := "[hi bob joined the chat bob joined the chat there]"; fmt.Sprint(got) != want {
		t.Fatalf("messages = %v, want %s", got, want)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := Reduce(View{}, messageEvent(Message{ID: 1, Body: "hi"}))
	before = Reduce(before, Event{Type: TypeTypingChanged, Typing: &Typing{RecipientID: "b", Users: map[string]string{"b": "bob"}}})

	after := Reduce(before, Event{Type: TypeReceipt, Receipt: &Receipt{MessageID: 1, ReadBy: []string{"b"}, ReadCount: 1}})
	after = Reduce(after, messageEvent(Message{ID: 1, Body: "edited"}))
	after = Reduce(after, Event{Type: TypeTypingChanged, Typing: &Typing{RecipientID: "b", Users: map[string]string{}}})

	if before.Messages[0].Body != "hi" || len(before.Messages[0].ReadBy) != 0 {
		t.Fatalf("input view changed: %+v", before.Messages[0])
	}
	if len(before.Pairs["b"]) != 1 {
		t.Fatalf("input pair typing changed: %v", before.Pairs)
	}
	if after.Messages[0].Body != "edited" || len(after.Pairs["b"]) != 0 {
		t.Fatalf("after = %+v", after)
	}
}

func TestReduceReceipt(t *testing.T) {
	v := Reduce(View{}, messageEvent(Message{ID: 7, Body: "hi"}))
	v = Reduce(v, Event{Type: TypeReceipt, Receipt: &Receipt{MessageID: 7, ReadBy: []string{"b", "c"}, ReadCount: 2}})

	if fmt.Sprint(v.Messages[0].ReadBy) != "[b c]" {
		t.Fatalf("ReadBy = %v", v.Messages[0].ReadBy)
	}
}

func TestConversation(t *testing.T) {
	v := View{SelfID: "a"}
	for _, m := range []Message{
		{ID: 1, SenderID: "a", Body: "public"},
		{ID: 2, SenderID: "a", IsPrivate: true, RecipientID: "b", Body: "a->b"},
		{ID: 3, SenderID: "b", IsPrivate: true, RecipientID: "a", Body: "b->a"},
		{ID: 4, SenderID: "c", IsPrivate: true, RecipientID: "a", Body: "c->a"},
		{System: true, Body: "c joined the chat"},
	} {
		v = Reduce(v, messageEvent(m))
	}

	bodies := func(msgs []Message) string {
		var out []string
		for _, m := range msgs {
			out = append(out, m.Body)
		}
		return fmt.Sprint(out)
	}

	if got := bodies(v.Conversation("")); got != "[public c joined the chat]" {
		t.Fatalf("global = %s", got)
	}
	if got := bodies(v.Conversation("b")); got != "[a->b b->a]" {
		t.Fatalf("thread b = %s", got)
	}
	if got := bodies(v.Conversation("c")); got != "[c->a]" {
		t.Fatalf("thread c = %s", got)
	}
}

func TestTypingNames(t *testing.T) {
	v := View{SelfID: "a"}
	v = Reduce(v, Event{Type: TypeTypingChanged, Typing: &Typing{Users: map[string]string{"a": "alice", "c": "carol", "b": "bob"}}})
	v = Reduce(v, Event{Type: TypeTypingChanged, Typing: &Typing{RecipientID: "b", Users: map[string]string{"b": "bob"}}})

	if got := fmt.Sprint(v.TypingNames("")); got != "[bob carol]" {
		t.Fatalf("global typing = %s", got)
	}
	if got := fmt.Sprint(v.TypingNames("b")); got != "[bob]" {
		t.Fatalf("pair typing = %s", got)
	}
	if got := v.TypingNames("c"); len(got) != 0 {
		t.Fatalf("unknown pair = %v", got)
	}
}

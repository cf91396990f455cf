package repo

import (
	"errors"
	"testing"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/store"
)

func seedMessages(t *testing.T, st *store.Store, msgs ...domain.Message) {
	t.Helper()
	for _, m := range msgs {
		if err := AppendMessage(st, m); err != nil {
			t.Fatalf("AppendMessage(%s): %v", m.ID, err)
		}
	}
}

func TestAppendMessage_PreservesOrder(t *testing.T) {
	st := newStore(t)
	seedMessages(t, st,
		domain.Message{ID: "m1", SenderID: "a", ReceiverID: "b", Timestamp: 100, Type: domain.MessageText},
		domain.Message{ID: "m2", SenderID: "b", ReceiverID: "a", Timestamp: 50, Type: domain.MessageText},
		domain.Message{ID: "m3", SenderID: "a", ReceiverID: "c", Timestamp: 200, Type: domain.MessageText},
	)

	msgs, err := AllMessages(st)
	if err != nil {
		t.Fatalf("AllMessages: %v", err)
	}
	// Append order, not timestamp order.
	if len(msgs) != 3 || msgs[0].ID != "m1" || msgs[1].ID != "m2" || msgs[2].ID != "m3" {
		t.Fatalf("unexpected order: %+v", msgs)
	}
}

func TestMessagesForParticipant(t *testing.T) {
	st := newStore(t)
	seedMessages(t, st,
		domain.Message{ID: "m1", SenderID: "a", ReceiverID: "b"},
		domain.Message{ID: "m2", SenderID: "c", ReceiverID: "d"},
		domain.Message{ID: "m3", SenderID: "b", ReceiverID: "a"},
	)

	msgs, err := MessagesForParticipant(st, "a")
	if err != nil {
		t.Fatalf("MessagesForParticipant: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m3" {
		t.Fatalf("unexpected slice for participant a: %+v", msgs)
	}

	msgs, err = MessagesForParticipant(st, "nobody")
	if err != nil || len(msgs) != 0 {
		t.Fatalf("expected empty slice for stranger, got %+v err=%v", msgs, err)
	}
}

func TestFindMessageByID(t *testing.T) {
	st := newStore(t)
	seedMessages(t, st, domain.Message{ID: "m1", SenderID: "a", ReceiverID: "b", Text: "hi"})

	m, err := FindMessageByID(st, "m1")
	if err != nil || m.Text != "hi" {
		t.Fatalf("FindMessageByID: m=%+v err=%v", m, err)
	}
	if _, err := FindMessageByID(st, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	st := newStore(t)
	seedMessages(t, st,
		domain.Message{ID: "m1", SenderID: "b", ReceiverID: "a"},
		domain.Message{ID: "m2", SenderID: "a", ReceiverID: "b"},
		domain.Message{ID: "m3", SenderID: "b", ReceiverID: "c"},
	)

	if err := MarkRead(st, "a", "b"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	msgs, _ := AllMessages(st)
	if !msgs[0].IsRead {
		t.Fatal("message from partner to viewer must be marked read")
	}
	if msgs[1].IsRead || msgs[2].IsRead {
		t.Fatalf("unrelated messages mutated: %+v", msgs)
	}
}

func TestDeleteMessageByID(t *testing.T) {
	st := newStore(t)
	seedMessages(t, st,
		domain.Message{ID: "m1"},
		domain.Message{ID: "m2"},
	)

	if err := DeleteMessageByID(st, "m1"); err != nil {
		t.Fatalf("DeleteMessageByID: %v", err)
	}
	// Absent id is a no-op, not an error.
	if err := DeleteMessageByID(st, "m1"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}

	msgs, err := AllMessages(st)
	if err != nil {
		t.Fatalf("AllMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m2" {
		t.Fatalf("unexpected ledger after delete: %+v", msgs)
	}
}

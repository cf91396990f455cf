package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sparkchat/sparkd/internal/domain"
	"github.com/sparkchat/sparkd/internal/repo"
)

func TestReconciler_InitialRunMaterializesBots(t *testing.T) {
	st := newTestStore(t)
	r := NewReconciler("+380111", st, time.Hour)
	r.Start()
	defer r.Stop()

	chats := r.Snapshot()
	if len(chats) != 2 {
		t.Fatalf("expected bot chats right after Start, got %d", len(chats))
	}
}

func TestReconciler_InvalidatePicksUpWrites(t *testing.T) {
	st := newTestStore(t)
	r := NewReconciler("+380111", st, time.Hour)
	r.Start()
	defer r.Stop()

	if err := repo.AppendMessage(st, domain.Message{
		ID: "m1", SenderID: "+380222", ReceiverID: "+380111", Text: "hi", Timestamp: 10, Type: domain.MessageText,
	}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	r.Invalidate()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := r.Chat("+380222"); ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("write never reflected in snapshot: %+v", r.Snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReconciler_CreateLocalChat(t *testing.T) {
	st := newTestStore(t)
	r := NewReconciler("+380111", st, time.Hour)
	r.Start()
	defer r.Stop()

	chat := r.CreateLocalChat(CreateChatInput{
		Name: "Новости", Type: domain.ChatChannel, Description: "d", Link: "news", Privacy: "public",
	})
	if !strings.HasPrefix(chat.ID, domain.SyntheticIDPrefix) {
		t.Fatalf("expected synthetic id, got %q", chat.ID)
	}
	if chat.LastMessage != "Канал создан" || !chat.IsAdmin || chat.Subscribers != 1 {
		t.Fatalf("unexpected channel: %+v", chat)
	}
	if chat.Link != "t.me/news" {
		t.Fatalf("link = %q", chat.Link)
	}

	group := r.CreateLocalChat(CreateChatInput{Name: "Друзья", Type: domain.ChatGroup})
	if group.Type != domain.ChatGroup || group.LastMessage != "Группа создана" {
		t.Fatalf("unexpected group: %+v", group)
	}

	// The local chat survives recomputes as an orphan.
	r.Invalidate()
	time.Sleep(50 * time.Millisecond)
	if _, ok := r.Chat(chat.ID); !ok {
		t.Fatalf("local chat lost after recompute: %+v", r.Snapshot())
	}

	// And keeps its attributes once messages start flowing to it.
	if err := repo.AppendMessage(st, domain.Message{
		ID: "m1", SenderID: "+380111", ReceiverID: chat.ID, Text: "post", Timestamp: 10, Type: domain.MessageText,
	}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	r.Invalidate()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, ok := r.Chat(chat.ID)
		if ok && len(got.Messages) == 1 {
			if got.Name != "Новости" || got.Type != domain.ChatChannel || !got.IsAdmin {
				t.Fatalf("attributes lost when ledger took over: %+v", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("message never attached to local chat: %+v", r.Snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReconciler_SnapshotIsACopy(t *testing.T) {
	st := newTestStore(t)
	r := NewReconciler("+380111", st, time.Hour)
	r.Start()
	defer r.Stop()

	snap := r.Snapshot()
	if len(snap) == 0 {
		t.Fatal("expected chats")
	}
	snap[0].Name = "mutated"
	if got := r.Snapshot()[0].Name; got == "mutated" {
		t.Fatal("snapshot must not alias internal state")
	}
}

func TestSessionManager(t *testing.T) {
	st := newTestStore(t)
	m := NewSessionManager(st, time.Hour)
	defer m.StopAll()

	a := m.Session("+380111")
	if a == nil || m.Session("+380111") != a {
		t.Fatal("sessions must be cached per viewer")
	}
	b := m.Session("+380222")
	if b == a {
		t.Fatal("viewers must not share a session")
	}

	// Invalidate on an inactive viewer must not create a session.
	m.Invalidate("+380999")
	m.mu.Lock()
	_, created := m.sessions["+380999"]
	m.mu.Unlock()
	if created {
		t.Fatal("Invalidate must not start sessions")
	}
}

func TestSessionManager_EndToEndPaidSendVisibility(t *testing.T) {
	st := newTestStore(t)
	m := NewSessionManager(st, time.Hour)
	defer m.StopAll()

	seedUser(t, st, domain.User{PhoneNumber: "+380111", FirstName: "A", Stars: 10})
	seedUser(t, st, domain.User{PhoneNumber: "+380222", FirstName: "B", Stars: 0, MessagePrice: 3})

	svc := &MessageService{Store: st, Sessions: m}

	sender := m.Session("+380111")
	receiver := m.Session("+380222")

	if _, err := svc.Send(context.Background(), SendInput{
		Sender: "+380111", ChatID: "+380222", Type: domain.MessageText, Text: "платное", Confirm: true,
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, sOK := sender.Chat("+380222")
		rc, rOK := receiver.Chat("+380111")
		if sOK && rOK && rc.UnreadCount == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("send not visible on both sides: sender=%v receiver=%v", sOK, rOK)
		}
		time.Sleep(5 * time.Millisecond)
	}

	a, _ := repo.FindUserByPhone(st, "+380111")
	b, _ := repo.FindUserByPhone(st, "+380222")
	if a.Stars != 7 || b.Stars != 3 {
		t.Fatalf("transfer mismatch: %d/%d", a.Stars, b.Stars)
	}
}

package store

import (
	"errors"
	"testing"

	"aichat/pkg/domain"
)

func TestCreateUserDuplicateLeavesStoreUnchanged(t *testing.T) {
	m := NewMemoryStore()
	first, err := m.CreateUser("alice", "hash-1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if first.ID == 0 {
		t.Fatalf("expected non-zero user id")
	}

	if _, err := m.CreateUser("alice", "hash-2"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	count, err := m.UserCount()
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("duplicate signup must not change user count, got %d", count)
	}
	stored, ok, err := m.GetUserByUsername("alice")
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if stored.PasswordHash != "hash-1" {
		t.Fatalf("failed insert must not mutate the stored user")
	}
}

func TestMessagesKeyedByUser(t *testing.T) {
	m := NewMemoryStore()
	alice, _ := m.CreateUser("alice", "h")
	bob, _ := m.CreateUser("bob", "h")

	for _, msg := range []domain.Message{
		{UserID: &alice.ID, Role: domain.RoleUser, Content: "hi"},
		{UserID: &alice.ID, Role: domain.RoleAssistant, Content: "hello"},
		{UserID: &bob.ID, Role: domain.RoleUser, Content: "hey"},
	} {
		if err := m.AppendMessage(msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	aliceMsgs, err := m.ListMessages(alice.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(aliceMsgs) != 2 {
		t.Fatalf("expected 2 turns for alice, got %d", len(aliceMsgs))
	}
	if aliceMsgs[0].Content != "hi" || aliceMsgs[1].Content != "hello" {
		t.Fatalf("turns out of append order: %+v", aliceMsgs)
	}
	bobMsgs, err := m.ListMessages(bob.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bobMsgs) != 1 {
		t.Fatalf("expected 1 turn for bob, got %d", len(bobMsgs))
	}
	if bobMsgs[0].CreatedAt.IsZero() {
		t.Fatalf("append must stamp a timestamp")
	}
}

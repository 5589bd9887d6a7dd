package app

import (
	"context"
	"testing"
	"time"

	"quizbox-service/internal/domain"
	"quizbox-service/internal/infra/memory"
)

func TestChatPostBroadcastsAndPersists(t *testing.T) {
	board := NewChatBoard(memory.NewChatStore())
	ctx := context.Background()

	events, cancel := board.Subscribe()
	defer cancel()

	msg, err := board.Post(ctx, "u1", "Alice", domain.RoleStudent, "what is recursion?", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if msg.ID == "" || msg.Timestamp == 0 {
		t.Fatalf("expected generated id and timestamp, got %+v", msg)
	}

	select {
	case event := <-events:
		if event.Type != "message" || event.Message == nil || event.Message.ID != msg.ID {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("no broadcast received")
	}

	history, err := board.History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Text != "what is recursion?" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestChatReplyContextRoundTrips(t *testing.T) {
	board := NewChatBoard(memory.NewChatStore())
	ctx := context.Background()

	original, err := board.Post(ctx, "u1", "Alice", domain.RoleStudent, "question", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	reply := &domain.ReplyContext{MessageID: original.ID, SenderName: "Alice", Text: "question"}
	if _, err := board.Post(ctx, "u2", "Bob", domain.RoleAdmin, "answer", reply); err != nil {
		t.Fatalf("post reply: %v", err)
	}

	history, err := board.History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	got := history[1].ReplyTo
	if got == nil || got.MessageID != original.ID || got.SenderName != "Alice" {
		t.Fatalf("reply context lost: %+v", got)
	}
}

func TestChatDeletePermissions(t *testing.T) {
	board := NewChatBoard(memory.NewChatStore())
	ctx := context.Background()

	msg, err := board.Post(ctx, "u1", "Alice", domain.RoleStudent, "hi", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	if err := board.Delete(ctx, "u2", domain.RoleStudent, msg.ID); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden for another student, got %v", err)
	}
	if err := board.Delete(ctx, "u2", domain.RoleAdmin, msg.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := board.Delete(ctx, "u1", domain.RoleStudent, msg.ID); err != domain.ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound after delete, got %v", err)
	}

	history, err := board.History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}

func TestChatDeleteOwnMessage(t *testing.T) {
	board := NewChatBoard(memory.NewChatStore())
	ctx := context.Background()

	events, cancel := board.Subscribe()
	defer cancel()

	msg, err := board.Post(ctx, "u1", "Alice", domain.RoleStudent, "oops", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	<-events // message event

	if err := board.Delete(ctx, "u1", domain.RoleStudent, msg.ID); err != nil {
		t.Fatalf("delete own: %v", err)
	}

	select {
	case event := <-events:
		if event.Type != "deleted" || event.MessageID != msg.ID {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("no deletion broadcast")
	}
}

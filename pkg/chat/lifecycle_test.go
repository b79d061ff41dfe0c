package chat

import (
	"context"
	"testing"
)

func TestTurnBeginAndComplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	conv := newTestConversation(t, store, "tenant-1", "user-1")
	mgr := NewManager(store)

	turn, err := mgr.Begin(ctx, "tenant-1", conv.ID, "what is Go?", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	msgs, _ := store.ListMessages(ctx, "tenant-1", conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages after Begin, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "what is Go?" {
		t.Errorf("first message = %s %q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Status != StatusInProgress {
		t.Errorf("placeholder = %s %s", msgs[1].Role, msgs[1].Status)
	}
	if msgs[1].ParentMessageID != msgs[0].ID {
		t.Errorf("placeholder parent = %q, want %q", msgs[1].ParentMessageID, msgs[0].ID)
	}

	if err := turn.Complete(ctx, "a language", 200, 10, 3, 13); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	msgs, _ = store.ListMessages(ctx, "tenant-1", conv.ID)
	assistant := msgs[1]
	if assistant.Status != StatusCompleted || assistant.Content != "a language" {
		t.Errorf("assistant = %s %q", assistant.Status, assistant.Content)
	}
	if assistant.TotalTokens != 13 {
		t.Errorf("total tokens = %d, want 13", assistant.TotalTokens)
	}
	if assistant.StatusCode != 200 {
		t.Errorf("status code = %d, want 200", assistant.StatusCode)
	}
}

func TestTurnFailKeepsPartialText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	conv := newTestConversation(t, store, "tenant-1", "user-1")
	mgr := NewManager(store)

	turn, err := mgr.Begin(ctx, "tenant-1", conv.ID, "prompt", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := turn.Fail(ctx, "partial answ", "client disconnected", 200); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	msgs, _ := store.ListMessages(ctx, "tenant-1", conv.ID)
	assistant := msgs[1]
	if assistant.Status != StatusError {
		t.Errorf("status = %s, want error", assistant.Status)
	}
	if assistant.Content != "partial answ" {
		t.Errorf("content = %q, partial text lost", assistant.Content)
	}
	if assistant.ErrorDetail != "client disconnected" {
		t.Errorf("error detail = %q", assistant.ErrorDetail)
	}
}

func TestTurnDoubleFinalizeIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	conv := newTestConversation(t, store, "tenant-1", "user-1")
	mgr := NewManager(store)

	turn, err := mgr.Begin(ctx, "tenant-1", conv.ID, "prompt", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := turn.Complete(ctx, "done", 200, 0, 0, 0); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	// A late Fail (e.g. disconnect handler firing after completion) is
	// silently ignored.
	if err := turn.Fail(ctx, "", "too late", 0); err != nil {
		t.Fatalf("Fail after Complete: %v", err)
	}

	msgs, _ := store.ListMessages(ctx, "tenant-1", conv.ID)
	if msgs[1].Status != StatusCompleted {
		t.Errorf("status = %s, want completed", msgs[1].Status)
	}
}

package memory

import (
	"testing"

	"edudash-assessment-service/internal/session"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	sess := session.New("att-1", "stu-1", sampleQuiz(), nil)
	store.Put("att-1", sess)
	if got, ok := store.Get("att-1"); !ok || got != sess {
		t.Fatalf("expected stored session back")
	}

	store.Delete("att-1")
	if _, ok := store.Get("att-1"); ok {
		t.Fatalf("expected session removed")
	}
}

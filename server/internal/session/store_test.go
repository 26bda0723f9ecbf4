package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"saphira/server/internal/model"
)

func sampleSession(id string) *model.Session {
	return &model.Session{
		ID:           id,
		UseCase:      model.UseCaseJobInterview,
		Country:      model.CountryNigeria,
		Status:       model.StatusInProgress,
		MaxQuestions: 10,
		Panel: []model.PanelMember{
			{ID: "p1", Name: "Mrs. Adebayo", Role: "HR Manager", Personality: model.PersonalitySupportive},
		},
		Messages: []model.Message{
			{ID: "m1", Sender: model.SenderPanel, PanelMemberID: "p1", Text: "Please start by introducing yourself.", IsQuestion: true},
		},
		QuestionsAsked: []string{"please start by introducing yourself"},
		LastReactions:  map[string]string{"p1": "Okay."},
	}
}

func TestInMemoryStoreCopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	s := sampleSession("s1")
	if err := st.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s.Messages[0].Text = "mutated after save"
	s.LastReactions["p1"] = "mutated"

	got, err := st.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Messages[0].Text != "Please start by introducing yourself." || got.LastReactions["p1"] != "Okay." {
		t.Fatalf("store shares memory with caller: %+v", got.Messages[0])
	}

	got.QuestionsAsked[0] = "changed"
	again, _ := st.Get(ctx, "s1")
	if again.QuestionsAsked[0] != "please start by introducing yourself" {
		t.Fatalf("Get returned internal slice")
	}
}

func TestInMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestInMemoryStoreDeleteAndList(t *testing.T) {
	ctx := context.Background()
	st := NewInMemoryStore()
	for _, id := range []string{"b", "a", "c"} {
		_ = st.Save(ctx, sampleSession(id))
	}
	if err := st.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids := st.List(ctx)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

// 需要本地 Redis：REDIS_ADDR=localhost:6379 go test ./...
func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	st := NewRedisStore(rdb, time.Minute)
	defer st.Close()

	s := sampleSession("redis-test-" + time.Now().Format("150405.000000"))
	if err := st.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Messages[0].Text != s.Messages[0].Text || got.LastReactions["p1"] != "Okay." {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if ttl := rdb.TTL(ctx, key(s.ID)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}
	if err := st.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

package searchindex

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSource struct {
	listCalls int
	listErrs  []error
	recordErr error
}

func (s *stubSource) ListIndices(context.Context) ([]Summary, error) {
	s.listCalls++
	if len(s.listErrs) > 0 {
		err := s.listErrs[0]
		s.listErrs = s.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []Summary{{Name: "wp_posts", Entries: 1}}, nil
}

func (s *stubSource) GetSettings(context.Context, string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (s *stubSource) GetRecord(context.Context, string, string) (Record, error) {
	return nil, s.recordErr
}

func TestGuard_RetriesTransientErrors(t *testing.T) {
	src := &stubSource{listErrs: []error{&StatusError{Op: "list indices", Code: 503}, nil}}
	g := Guard(src, GuardOptions{MaxRetries: 2, Backoff: time.Millisecond})

	list, err := g.ListIndices(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || src.listCalls != 2 {
		t.Fatalf("calls: got %d, list %v", src.listCalls, list)
	}
}

func TestGuard_NoRetryOnClientError(t *testing.T) {
	src := &stubSource{listErrs: []error{&StatusError{Op: "list indices", Code: 403}}}
	g := Guard(src, GuardOptions{MaxRetries: 3, Backoff: time.Millisecond})

	if _, err := g.ListIndices(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if src.listCalls != 1 {
		t.Fatalf("calls: got %d, want 1", src.listCalls)
	}
}

func TestGuard_NotFoundIsHealthy(t *testing.T) {
	src := &stubSource{recordErr: ErrNotFound}
	br := NewBreaker(1, time.Hour)
	var outcomes []string
	g := Guard(src, GuardOptions{
		Breaker:  br,
		Observer: func(op, outcome string, _ time.Duration) { outcomes = append(outcomes, op+":"+outcome) },
	})

	for i := 0; i < 3; i++ {
		if _, err := g.GetRecord(context.Background(), "idx", "1-0"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("error: got %v", err)
		}
	}
	if br.State() != BreakerClosed {
		t.Fatalf("breaker: got %v, want closed", br.State())
	}
	if len(outcomes) != 3 || outcomes[0] != "get_record:not_found" {
		t.Fatalf("outcomes: got %v", outcomes)
	}
}

func TestGuard_BreakerOpens(t *testing.T) {
	boom := errors.New("connection refused")
	src := &stubSource{listErrs: []error{boom, boom, boom}}
	br := NewBreaker(2, time.Hour)
	g := Guard(src, GuardOptions{Breaker: br})

	g.ListIndices(context.Background())
	g.ListIndices(context.Background())
	_, err := g.ListIndices(context.Background())
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("third call: got %v, want ErrCircuitOpen", err)
	}
	if src.listCalls != 2 {
		t.Fatalf("calls reaching source: got %d, want 2", src.listCalls)
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Now()
	br := NewBreaker(1, time.Minute)
	br.now = func() time.Time { return now }

	br.Failure()
	if br.Allow() {
		t.Fatal("breaker should be open")
	}

	now = now.Add(2 * time.Minute)
	if got := br.State(); got != BreakerHalfOpen {
		t.Fatalf("state: got %v, want half-open", got)
	}
	br.Success()
	br.Success()
	if got := br.State(); got != BreakerClosed {
		t.Fatalf("state: got %v, want closed", got)
	}
}

func TestFilterByPrefix(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	list := []Summary{
		{Name: "prefix_a", Entries: 10, UpdatedAt: t1},
		{Name: "other_b", Entries: 5, UpdatedAt: t2},
	}

	got := FilterByPrefix(list, "prefix_")
	if len(got) != 1 || got[0].Name != "prefix_a" || got[0].Entries != 10 {
		t.Fatalf("filter: got %+v", got)
	}
	if all := FilterByPrefix(list, ""); len(all) != 2 {
		t.Fatalf("empty prefix: got %d", len(all))
	}
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestJobEnvelopeRoundTrip(t *testing.T) {
	in := Job{
		ID:         "job-1",
		Name:       Clustering,
		Attempt:    2,
		Payload:    json.RawMessage(`{"items":["a","b"]}`),
		EnqueuedAt: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Job
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID != in.ID || out.Name != in.Name || out.Attempt != in.Attempt {
		t.Errorf("envelope fields lost: %+v", out)
	}
	if string(out.Payload) != string(in.Payload) {
		t.Errorf("payload altered: %s", out.Payload)
	}
	if !out.EnqueuedAt.Equal(in.EnqueuedAt) {
		t.Errorf("timestamp altered: %v", out.EnqueuedAt)
	}
}

func TestQueueKeys(t *testing.T) {
	q := &Queues{prefix: "duckwire"}
	cases := map[string]string{
		Ingestion:    "duckwire:queue:ingestion",
		Clustering:   "duckwire:queue:clustering",
		Verification: "duckwire:queue:verification",
	}
	for name, want := range cases {
		if got := q.key(name); got != want {
			t.Errorf("key(%s) = %s, want %s", name, got, want)
		}
	}
}

func TestDispatchRoutesByQueueName(t *testing.T) {
	q := &Queues{prefix: "duckwire", attempts: 3, backoff: time.Second, sleep: func(time.Duration) {}}

	var got string
	handlers := map[string]Handler{
		Clustering: func(ctx context.Context, payload json.RawMessage) error {
			got = string(payload)
			return nil
		},
	}

	job, _ := json.Marshal(Job{ID: "j1", Name: Clustering, Attempt: 1, Payload: json.RawMessage(`{"k":1}`)})
	q.dispatch(context.Background(), string(job), handlers)
	if got != `{"k":1}` {
		t.Errorf("handler not invoked with payload, got %q", got)
	}

	// Unknown queue and malformed envelope are dropped without panicking.
	other, _ := json.Marshal(Job{ID: "j2", Name: "unknown", Attempt: 1})
	q.dispatch(context.Background(), string(other), handlers)
	q.dispatch(context.Background(), "{not json", handlers)
}

func TestDispatchDropsJobAfterAttemptBudget(t *testing.T) {
	q := &Queues{prefix: "duckwire", attempts: 3, backoff: time.Second, sleep: func(time.Duration) {}}

	calls := 0
	handlers := map[string]Handler{
		Ingestion: func(ctx context.Context, payload json.RawMessage) error {
			calls++
			return fmt.Errorf("always fails")
		},
	}

	// At the final attempt the job is dropped, not requeued; no broker
	// access happens on this path.
	job, _ := json.Marshal(Job{ID: "j1", Name: Ingestion, Attempt: 3})
	q.dispatch(context.Background(), string(job), handlers)
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
}

func TestBackoffDelayDoubles(t *testing.T) {
	q := &Queues{backoff: time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
	}
	for _, c := range cases {
		if got := q.backoffDelay(c.attempt); got != c.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

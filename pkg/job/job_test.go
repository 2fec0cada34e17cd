package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/vase/pkg/alignment"
	"github.com/matzehuels/vase/pkg/cache"
	"github.com/matzehuels/vase/pkg/document"
	"github.com/matzehuels/vase/pkg/observability"
	"github.com/matzehuels/vase/pkg/store"
)

func testDocument() (*document.Document, error) {
	tbl, err := document.NewTable([]document.ColumnInfo{{ID: "residue_number"}, {ID: "pdb_residue"}})
	if err != nil {
		return nil, err
	}
	if err := tbl.AddRow([]string{"1", "A10"}); err != nil {
		return nil, err
	}
	return document.New(alignment.Alignment{{ID: "1crn_A", Residues: "T"}}, "ATOM\n", tbl)
}

func okProducer(ctx context.Context) (*document.Document, error) { return testDocument() }

// startQueue runs q until the test ends.
func startQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run error: %v", err)
		}
	})
}

func waitFor(t *testing.T, q *Queue, id string) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := q.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait(%s) error: %v", id, err)
	}
	return s
}

func TestJobFinishesAndStores(t *testing.T) {
	ctx := context.Background()
	st := store.New(cache.NewMemoryCache(0), store.Options{})
	q := NewQueue(st, Options{Workers: 2})
	startQueue(t, q)

	id, err := q.Submit(ctx, "document:1crn_a", ProducerFunc(okProducer))
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if s := waitFor(t, q, id); s != Finished {
		t.Fatalf("state = %s, want FINISHED", s)
	}
	if err := q.Error(id); err != nil {
		t.Errorf("Error() = %v, want nil", err)
	}

	doc, err := st.Load(ctx, "document:1crn_a")
	if err != nil {
		t.Fatalf("stored document not loadable: %v", err)
	}
	want, _ := testDocument()
	if !doc.Equal(want) {
		t.Error("stored document differs from the produced one")
	}

	info, _ := q.Info(id)
	if info.Started.IsZero() || info.Finished.Before(info.Started) {
		t.Errorf("timestamps not recorded: %+v", info)
	}
}

func TestJobFails(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(nil, Options{})
	startQueue(t, q)

	boom := errors.New("source file missing")
	id, _ := q.Submit(ctx, "k", ProducerFunc(func(context.Context) (*document.Document, error) {
		return nil, boom
	}))
	if s := waitFor(t, q, id); s != Failed {
		t.Fatalf("state = %s, want FAILED", s)
	}
	if err := q.Error(id); !errors.Is(err, boom) {
		t.Errorf("Error() = %v, want %v", err, boom)
	}

	panicID, _ := q.Submit(ctx, "k2", ProducerFunc(func(context.Context) (*document.Document, error) {
		panic("bad input")
	}))
	if s := waitFor(t, q, panicID); s != Failed {
		t.Errorf("panicking producer state = %s, want FAILED", s)
	}
}

func TestSubmitDeduplicatesActiveKey(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(nil, Options{})

	release := make(chan struct{})
	blocking := ProducerFunc(func(ctx context.Context) (*document.Document, error) {
		<-release
		return testDocument()
	})

	id1, _ := q.Submit(ctx, "document:1crn", blocking)
	id2, _ := q.Submit(ctx, "document:1crn", blocking)
	if id1 != id2 {
		t.Fatalf("second Submit for an active key returned %s, want %s", id2, id1)
	}
	if s, _ := q.Status(id1); s != Queued {
		t.Errorf("state before Run = %s, want QUEUED", s)
	}

	other, _ := q.Submit(ctx, "document:2abc", ProducerFunc(okProducer))
	if other == id1 {
		t.Error("different keys should get different jobs")
	}

	startQueue(t, q)
	close(release)
	waitFor(t, q, id1)
	waitFor(t, q, other)

	id3, _ := q.Submit(ctx, "document:1crn", ProducerFunc(okProducer))
	if id3 == id1 {
		t.Error("a key whose job finished should get a new job")
	}
	waitFor(t, q, id3)
}

func TestSubmitQueueFull(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(nil, Options{Backlog: 1})

	if _, err := q.Submit(ctx, "a", ProducerFunc(okProducer)); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Submit(ctx, "b", ProducerFunc(okProducer)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Submit error = %v, want ErrQueueFull", err)
	}
}

func TestUnknownJob(t *testing.T) {
	q := NewQueue(nil, Options{})
	if _, err := q.Status("nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Status error = %v", err)
	}
	if _, err := q.Wait(context.Background(), "nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Wait error = %v", err)
	}
}

func TestWaitContext(t *testing.T) {
	q := NewQueue(nil, Options{})
	id, _ := q.Submit(context.Background(), "k", ProducerFunc(okProducer))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Wait(ctx, id); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait without workers error = %v, want deadline exceeded", err)
	}
}

type recordingJobHooks struct {
	mu          sync.Mutex
	transitions []string
	completed   int
}

func (h *recordingJobHooks) OnJobTransition(_ context.Context, _ string, state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transitions = append(h.transitions, state)
}

func (h *recordingJobHooks) OnJobComplete(context.Context, string, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed++
}

func TestJobHooks(t *testing.T) {
	h := &recordingJobHooks{}
	observability.SetJobHooks(h)
	defer observability.Reset()

	q := NewQueue(nil, Options{})
	startQueue(t, q)
	id, _ := q.Submit(context.Background(), "k", ProducerFunc(okProducer))
	waitFor(t, q, id)

	h.mu.Lock()
	defer h.mu.Unlock()
	want := []string{"QUEUED", "RUNNING", "FINISHED"}
	if len(h.transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", h.transitions, want)
	}
	for i := range want {
		if h.transitions[i] != want[i] {
			t.Errorf("transitions = %v, want %v", h.transitions, want)
			break
		}
	}
	if h.completed != 1 {
		t.Errorf("completed = %d, want 1", h.completed)
	}
}

func TestFinishedJobsExpire(t *testing.T) {
	q := NewQueue(nil, Options{Retention: 50 * time.Millisecond})
	startQueue(t, q)

	id, err := q.Submit(context.Background(), "document:1crn_a", ProducerFunc(okProducer))
	if err != nil {
		t.Fatal(err)
	}
	if s := waitFor(t, q, id); s != Finished {
		t.Fatalf("state = %s, want FINISHED", s)
	}
	if s, err := q.Status(id); err != nil || s != Finished {
		t.Fatalf("Status right after finishing = %s, %v", s, err)
	}

	time.Sleep(150 * time.Millisecond)
	if _, err := q.Status(id); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Status after retention error = %v, want ErrUnknownJob", err)
	}
}

func TestFinishedJobsBounded(t *testing.T) {
	q := NewQueue(nil, Options{MaxFinished: 2})
	startQueue(t, q)

	var ids []string
	for _, key := range []string{"document:a", "document:b", "document:c"} {
		id, err := q.Submit(context.Background(), key, ProducerFunc(okProducer))
		if err != nil {
			t.Fatal(err)
		}
		waitFor(t, q, id)
		ids = append(ids, id)
	}

	if _, err := q.Status(ids[0]); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("oldest job error = %v, want ErrUnknownJob", err)
	}
	for _, id := range ids[1:] {
		if s, err := q.Status(id); err != nil || s != Finished {
			t.Errorf("Status(%s) = %s, %v; want FINISHED", id, s, err)
		}
	}
}

func TestResubmitAfterFinish(t *testing.T) {
	q := NewQueue(nil, Options{})
	startQueue(t, q)
	ctx := context.Background()

	first, _ := q.Submit(ctx, "document:1crn_a", ProducerFunc(okProducer))
	waitFor(t, q, first)
	second, err := q.Submit(ctx, "document:1crn_a", ProducerFunc(okProducer))
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("a finished job must not absorb a new submission for its key")
	}
	if s := waitFor(t, q, second); s != Finished {
		t.Errorf("second job state = %s", s)
	}
	if s, _ := q.Status(first); s != Finished {
		t.Errorf("first job should still be retained, state %q", s)
	}
}

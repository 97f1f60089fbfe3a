package recent

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ajdavis/chirp/internal/chirpstore"
	"github.com/ajdavis/chirp/pkg/id"
)

func rec(t *testing.T, gen *id.Generator, msg string) chirpstore.Record {
	t.Helper()
	return chirpstore.Record{ID: gen.Next(), Msg: msg}
}

func TestBufferKeepsNewestInOrder(t *testing.T) {
	gen := id.NewGenerator()
	b := NewBuffer(20)

	for i := 0; i < 25; i++ {
		b.Append(rec(t, gen, fmt.Sprintf("chirp-%d", i)))
	}

	snap := b.Snapshot()
	if len(snap) != 20 {
		t.Fatalf("got %d records, want 20", len(snap))
	}
	for i, r := range snap {
		want := fmt.Sprintf("chirp-%d", i+5)
		if r.Msg != want {
			t.Errorf("record %d: %q, want %q", i, r.Msg, want)
		}
	}
}

func TestBufferBatchAppendEvicts(t *testing.T) {
	gen := id.NewGenerator()
	b := NewBuffer(3)

	batch := make([]chirpstore.Record, 5)
	for i := range batch {
		batch[i] = rec(t, gen, fmt.Sprintf("m%d", i))
	}
	b.Append(batch...)

	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("got %d records, want 3", len(snap))
	}
	for i, want := range []string{"m2", "m3", "m4"} {
		if snap[i].Msg != want {
			t.Errorf("record %d: %q, want %q", i, snap[i].Msg, want)
		}
	}
}

func TestBufferLast(t *testing.T) {
	gen := id.NewGenerator()
	b := NewBuffer(2)

	if _, ok := b.Last(); ok {
		t.Fatal("empty buffer reported a last record")
	}

	first := rec(t, gen, "first")
	second := rec(t, gen, "second")
	b.Append(first)
	b.Append(second)

	last, ok := b.Last()
	if !ok {
		t.Fatal("non-empty buffer reported no last record")
	}
	if last != second.ID {
		t.Fatalf("last = %s, want %s", last, second.ID)
	}
}

func TestBufferClear(t *testing.T) {
	gen := id.NewGenerator()
	b := NewBuffer(5)
	b.Append(rec(t, gen, "x"), rec(t, gen, "y"))

	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("len %d after clear, want 0", b.Len())
	}
	if _, ok := b.Last(); ok {
		t.Fatal("cleared buffer reported a last record")
	}
}

func TestBufferSnapshotIsCopy(t *testing.T) {
	gen := id.NewGenerator()
	b := NewBuffer(5)
	b.Append(rec(t, gen, "original"))

	snap := b.Snapshot()
	snap[0].Msg = "mutated"

	if got := b.Snapshot()[0].Msg; got != "original" {
		t.Fatalf("buffer record mutated through snapshot: %q", got)
	}
}

func TestBufferConcurrentAppend(t *testing.T) {
	gen := id.NewGenerator()
	b := NewBuffer(10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Append(rec(t, gen, "c"))
			}
		}()
	}
	wg.Wait()

	if got := b.Len(); got != 10 {
		t.Fatalf("len %d, want 10", got)
	}
}

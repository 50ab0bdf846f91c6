package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"idsearch/internal/blob/core"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	meta := map[string]string{"scheme": "all"}
	if _, err := s.Put(ctx, "batch/a.csv", strings.NewReader("row"), core.PutOptions{ContentType: "text/csv", Metadata: meta}); err != nil {
		t.Fatalf("put: %v", err)
	}
	meta["scheme"] = "mutated"
	info, rc, err := s.Get(ctx, "batch/a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "row" || info.Metadata["scheme"] != "all" || info.Size != 3 {
		t.Fatalf("unexpected %+v %q", info, body)
	}
	info.Metadata["scheme"] = "changed"
	head, _ := s.Head(ctx, "batch/a.csv")
	if head.Metadata["scheme"] != "all" {
		t.Fatalf("metadata aliased through Get")
	}
	if _, err := s.Put(ctx, "batch/a.csv", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "batch/a.csv", strings.NewReader("again"), core.PutOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestMissingAndList(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "../nope"); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	for _, k := range []string{"b/2", "a/1", "b/1"} {
		if _, err := s.Put(ctx, k, strings.NewReader(k), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, _ := s.List(ctx, "b/")
	if len(list) != 2 || list[0].Key != "b/1" {
		t.Fatalf("unexpected list %+v", list)
	}
	ok, _ := s.Delete(ctx, "a/1")
	missing, _ := s.Delete(ctx, "a/1")
	if !ok || missing {
		t.Fatalf("delete flags wrong: %v %v", ok, missing)
	}
}

func TestConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Put(ctx, "shared", strings.NewReader("x"), core.PutOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	var ok int
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful put, got %d", ok)
	}
}

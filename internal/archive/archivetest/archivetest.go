// Package archivetest checks archive.Backend implementations against the
// behaviour every backend shares.
package archivetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gezibash/hookmeta/internal/archive"
)

// Open returns a fresh, empty backend. Run closes it.
type Open func(t *testing.T) archive.Backend

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewRecord returns a valid record built n minutes after a fixed epoch.
func NewRecord(id string, n int) *archive.Record {
	return &archive.Record{
		ID:          id,
		BuiltAt:     epoch.Add(time.Duration(n) * time.Minute),
		Origins:     []string{"hooks.yaml"},
		Receivers:   2,
		Descriptors: 5,
		Endpoints:   n,
		View:        json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)),
	}
}

// Run exercises a backend.
func Run(t *testing.T, open Open) {
	t.Helper()

	t.Run("PutGet", func(t *testing.T) {
		b := openBackend(t, open)
		ctx := context.Background()

		want := NewRecord("snap-1", 1)
		if err := b.Put(ctx, want); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := b.Get(ctx, "snap-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ID != want.ID || !got.BuiltAt.Equal(want.BuiltAt) || got.Endpoints != want.Endpoints {
			t.Errorf("Get = %+v, want %+v", got, want)
		}
		if len(got.Origins) != 1 || got.Origins[0] != "hooks.yaml" {
			t.Errorf("Origins = %v", got.Origins)
		}
		if string(got.View) != string(want.View) {
			t.Errorf("View = %s, want %s", got.View, want.View)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		b := openBackend(t, open)
		if _, err := b.Get(context.Background(), "nope"); !errors.Is(err, archive.ErrNotFound) {
			t.Errorf("Get missing: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("PutInvalid", func(t *testing.T) {
		b := openBackend(t, open)
		if err := b.Put(context.Background(), &archive.Record{ID: "x"}); err == nil {
			t.Error("Put without build time should fail")
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		b := openBackend(t, open)
		ctx := context.Background()

		for i, id := range []string{"b", "c", "a"} {
			if err := b.Put(ctx, NewRecord(id, []int{2, 3, 1}[i])); err != nil {
				t.Fatalf("Put %s: %v", id, err)
			}
		}

		all, err := b.List(ctx, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if got := ids(all); got != "c,b,a" {
			t.Errorf("List(0) = %s, want c,b,a", got)
		}

		two, err := b.List(ctx, 2)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if got := ids(two); got != "c,b" {
			t.Errorf("List(2) = %s, want c,b", got)
		}
	})

	t.Run("PutReplaces", func(t *testing.T) {
		b := openBackend(t, open)
		ctx := context.Background()

		if err := b.Put(ctx, NewRecord("a", 1)); err != nil {
			t.Fatal(err)
		}
		if err := b.Put(ctx, NewRecord("b", 2)); err != nil {
			t.Fatal(err)
		}
		if err := b.Put(ctx, NewRecord("a", 3)); err != nil {
			t.Fatal(err)
		}

		all, err := b.List(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got := ids(all); got != "a,b" {
			t.Errorf("List after replace = %s, want a,b", got)
		}
		got, err := b.Get(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		if got.Endpoints != 3 {
			t.Errorf("Get after replace: endpoints = %d, want 3", got.Endpoints)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		b := open(t)
		if err := b.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := b.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		ctx := context.Background()
		if err := b.Put(ctx, NewRecord("a", 1)); !errors.Is(err, archive.ErrClosed) {
			t.Errorf("Put after Close: %v", err)
		}
		if _, err := b.Get(ctx, "a"); !errors.Is(err, archive.ErrClosed) {
			t.Errorf("Get after Close: %v", err)
		}
		if _, err := b.List(ctx, 0); !errors.Is(err, archive.ErrClosed) {
			t.Errorf("List after Close: %v", err)
		}
	})
}

func openBackend(t *testing.T, open Open) archive.Backend {
	t.Helper()
	b := open(t)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func ids(records []*archive.Record) string {
	var s string
	for i, r := range records {
		if i > 0 {
			s += ","
		}
		s += r.ID
	}
	return s
}

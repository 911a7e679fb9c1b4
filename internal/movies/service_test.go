package movies

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
)

func seedCatalog(t *testing.T, s Service, titles ...Movie) []Movie {
	t.Helper()
	out := make([]Movie, 0, len(titles))
	for _, m := range titles {
		created, err := s.Create(context.Background(), m)
		if err != nil {
			t.Fatalf("Create(%q): %v", m.Title, err)
		}
		out = append(out, created)
	}
	return out
}

func TestInMemoryCreateAssignsIdentityAndVersion(t *testing.T) {
	s := NewInMemory()
	m, err := s.Create(context.Background(), validMovie())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID != 1 || m.Version != 1 || m.CreatedAt.IsZero() {
		t.Fatalf("unexpected created record: %+v", m)
	}

	got, err := s.Get(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != m.Title {
		t.Fatalf("unexpected title: %q", got.Title)
	}
}

func TestInMemoryOptimisticConflict(t *testing.T) {
	s := NewInMemory()
	created := seedCatalog(t, s, validMovie())[0]

	// Two callers observe version 1. Caller A wins.
	newTitle := "Casablanca (restored)"
	updated, err := s.Update(context.Background(), created.ID, 1, Patch{Title: &newTitle})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	// Caller B still holds version 1 and must observe a conflict, not a
	// silent overwrite.
	otherTitle := "Casablanca (director's cut)"
	if _, err := s.Update(context.Background(), created.ID, 1, Patch{Title: &otherTitle}); !errors.Is(err, ErrEditConflict) {
		t.Fatalf("expected ErrEditConflict, got %v", err)
	}

	got, err := s.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != newTitle || got.Version != 2 {
		t.Fatalf("loser's write leaked through: %+v", got)
	}
}

func TestInMemoryConcurrentUpdatesSingleWinner(t *testing.T) {
	s := NewInMemory()
	created := seedCatalog(t, s, validMovie())[0]

	const contenders = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			title := "updated"
			_, err := s.Update(context.Background(), created.ID, 1, Patch{Title: &title})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrEditConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one winner at version 1, got %d", succeeded)
	}
}

func TestInMemoryPatchPresence(t *testing.T) {
	s := NewInMemory()
	created := seedCatalog(t, s, validMovie())[0]

	year := int32(1943)
	updated, err := s.Update(context.Background(), created.ID, 1, Patch{Year: &year})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != created.Title || updated.Runtime != created.Runtime {
		t.Fatalf("absent patch fields were overwritten: %+v", updated)
	}
	if updated.Year != 1943 {
		t.Fatalf("patched field not applied: %+v", updated)
	}
	if len(updated.Genres) != len(created.Genres) {
		t.Fatalf("nil genres patch must keep stored set: %+v", updated)
	}
}

func TestInMemoryDeleteIdempotentContract(t *testing.T) {
	s := NewInMemory()
	created := seedCatalog(t, s, validMovie())[0]

	if err := s.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeated delete must report ErrNotFound, got %v", err)
	}
	if _, err := s.Get(context.Background(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestInMemoryListFilterSortPaginate(t *testing.T) {
	s := NewInMemory()
	seedCatalog(t, s,
		Movie{Title: "The Shawshank Redemption", Year: 1994, Runtime: 142, Genres: []string{"drama"}},
		Movie{Title: "Heat", Year: 1995, Runtime: 170, Genres: []string{"crime", "thriller"}},
		Movie{Title: "Blade Runner", Year: 1982, Runtime: 117, Genres: []string{"sci-fi", "thriller"}},
		Movie{Title: "Blade Runner 2049", Year: 2017, Runtime: 164, Genres: []string{"sci-fi"}},
	)

	q, verr := CompileQuery(url.Values{"genres": {"thriller"}, "sort": {"-year"}})
	if verr != nil {
		t.Fatalf("CompileQuery: %v", verr)
	}
	got, err := s.List(context.Background(), q)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Heat" || got[1].Title != "Blade Runner" {
		t.Fatalf("unexpected result: %+v", got)
	}

	q, verr = CompileQuery(url.Values{"title": {"blade runner"}})
	if verr != nil {
		t.Fatalf("CompileQuery: %v", verr)
	}
	got, err = s.List(context.Background(), q)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both Blade Runner entries, got %+v", got)
	}

	q, verr = CompileQuery(url.Values{"page": {"2"}, "page_size": {"3"}})
	if verr != nil {
		t.Fatalf("CompileQuery: %v", verr)
	}
	got, err = s.List(context.Background(), q)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != 4 {
		t.Fatalf("unexpected second page: %+v", got)
	}

	q, verr = CompileQuery(url.Values{"page": {"50"}})
	if verr != nil {
		t.Fatalf("CompileQuery: %v", verr)
	}
	got, err = s.List(context.Background(), q)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", got)
	}
}

package worldnotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	owners map[int64]int64
	notes  map[int64]Note
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{owners: map[int64]int64{10: 1}, notes: make(map[int64]Note), nextID: 1}
}

func (m *mockRepository) NovelOwned(_ context.Context, userID, novelID int64) error {
	if m.owners[novelID] != userID {
		return shared.ErrNotFound
	}
	return nil
}

func (m *mockRepository) List(_ context.Context, _ int64, novelID int64, req ListRequest) ([]Note, error) {
	var out []Note
	for _, n := range m.notes {
		if n.NovelID == novelID && (req.Category == "" || n.Category == req.Category) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockRepository) Get(_ context.Context, userID, id int64) (Note, error) {
	n, ok := m.notes[id]
	if !ok || m.owners[n.NovelID] != userID {
		return Note{}, shared.ErrNotFound
	}
	return n, nil
}

func (m *mockRepository) Create(_ context.Context, n Note) (Note, error) {
	n.ID = m.nextID
	m.nextID++
	m.notes[n.ID] = n
	return n, nil
}

func (m *mockRepository) Update(ctx context.Context, userID int64, n Note) (Note, error) {
	existing, err := m.Get(ctx, userID, n.ID)
	if err != nil {
		return Note{}, err
	}
	n.NovelID = existing.NovelID
	m.notes[n.ID] = n
	return n, nil
}

func (m *mockRepository) Delete(ctx context.Context, userID, id int64) error {
	if _, err := m.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(m.notes, id)
	return nil
}

// ============================================================================
// TESTS
// ============================================================================

func TestNotesFilterByCategory(t *testing.T) {
	svc := NewService(newMockRepository(), shared.ChangeRecorder{})
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 10, NoteRequest{Title: "Nantucket", Category: CategoryLocation})
	require.NoError(t, err)
	misc, err := svc.Create(ctx, 1, 10, NoteRequest{Title: "Whaling law"})
	require.NoError(t, err)
	assert.Equal(t, CategoryOther, misc.Category)

	places, err := svc.List(ctx, 1, 10, ListRequest{Category: CategoryLocation})
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Nantucket", places[0].Title)

	_, err = svc.List(ctx, 1, 10, ListRequest{Category: "weather"})
	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.List(ctx, 2, 10, ListRequest{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestNotesOwnership(t *testing.T) {
	svc := NewService(newMockRepository(), shared.ChangeRecorder{})
	ctx := context.Background()

	n, err := svc.Create(ctx, 1, 10, NoteRequest{Title: "The Pequod", Category: CategoryTechnology})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 2, n.ID, NoteRequest{Title: "Stolen"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 2, n.ID), shared.ErrNotFound)

	updated, err := svc.Update(ctx, 1, n.ID, NoteRequest{Title: "The Pequod", Category: CategoryTechnology, Content: "three masts"})
	require.NoError(t, err)
	assert.Equal(t, "three masts", updated.Content)
}

func TestNoteHandlerRoutes(t *testing.T) {
	svc := NewService(newMockRepository(), shared.ChangeRecorder{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: 1})))
		})
	})
	NewHandler(nil, svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/novels/10/world-notes", strings.NewReader(`{"title":"Magic rules","category":"magic"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/novels/10/world-notes?category=magic", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Magic rules")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/world-notes/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/world-notes/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

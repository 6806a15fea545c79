package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	started := time.UnixMilli(1_700_000_000_123)
	e := NewEntry(KindBuild, "/docs/report.tex", started)
	e.Output = "/docs/report.pdf"
	e.Fingerprint = "abc"
	e.ExitCode = 1
	e.Errors = map[string]string{"engine": "! Undefined control sequence."}
	e.Log = "pass 1\n"
	e.Duration = 1500 * time.Millisecond
	require.NoError(t, store.Record(ctx, e))

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, KindBuild, got.Kind)
	assert.Equal(t, "/docs/report.tex", got.Source)
	assert.Equal(t, "/docs/report.pdf", got.Output)
	assert.Equal(t, "abc", got.Fingerprint)
	assert.False(t, got.OK)
	assert.Equal(t, 1, got.ExitCode)
	assert.Equal(t, e.Errors, got.Errors)
	assert.Equal(t, "pass 1\n", got.Log)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
}

func TestSQLiteStore_RecordAssignsID(t *testing.T) {
	store := newTestStore(t)

	e := &Entry{Kind: KindPostProcess, Source: "a.tex", OK: true}
	require.NoError(t, store.Record(t.Context(), e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.StartedAt.IsZero())

	got, err := store.Get(t.Context(), e.ID)
	require.NoError(t, err)
	assert.True(t, got.OK)
	assert.Nil(t, got.Errors)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(t.Context(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	var ids []string
	for _, src := range []string{"a.tex", "b.tex", "c.tex"} {
		e := NewEntry(KindBuild, src, time.Now())
		require.NoError(t, store.Record(ctx, e))
		ids = append(ids, e.ID)
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	two, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, "c.tex", two[0].Source)
	assert.Equal(t, "b.tex", two[1].Source)
}

func TestSQLiteStore_Latest(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	_, err := store.Latest(ctx, "doc.tex")
	require.ErrorIs(t, err, ErrNotFound)

	build := NewEntry(KindBuild, "doc.tex", time.Now())
	build.OK = true
	build.Fingerprint = "one"
	require.NoError(t, store.Record(ctx, build))

	got, err := store.Latest(ctx, "doc.tex")
	require.NoError(t, err)
	assert.Equal(t, build.ID, got.ID)

	post := NewEntry(KindPostProcess, "doc.tex", time.Now())
	post.Fingerprint = "one"
	require.NoError(t, store.Record(ctx, post))

	other := NewEntry(KindBuild, "other.tex", time.Now())
	other.OK = true
	require.NoError(t, store.Record(ctx, other))

	got, err = store.Latest(ctx, "doc.tex")
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID, "a failed post-process supersedes the successful build before it")
	assert.Equal(t, KindPostProcess, got.Kind)
	assert.False(t, got.OK)
}

func TestSQLiteStore_ErrorsAreHistoryCategory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Record(t.Context(), NewEntry(KindBuild, "doc.tex", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryHistory))
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	e := NewEntry(KindBuild, "doc.tex", time.Now())
	require.NoError(t, store.Record(t.Context(), e))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(t.Context(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc.tex", got.Source)
}

func TestNoopStore(t *testing.T) {
	var s Store = NoopStore{}
	require.NoError(t, s.Record(t.Context(), &Entry{}))
	_, err := s.Get(t.Context(), "x")
	require.ErrorIs(t, err, ErrNotFound)
	list, err := s.List(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = s.Latest(t.Context(), "x")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Close())
}

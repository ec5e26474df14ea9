package copier

import (
	"context"
	"drivemirror/internal/gateway/gatewaytest"
	"drivemirror/internal/model"
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tree struct {
	fake *gatewaytest.Fake
	src  string
	dst  string
	docs string
	sub  string
}

// newTree builds
//
//	src/a.txt
//	src/docs/b.txt
//	src/docs/sub/c.txt
//	src/empty/
func newTree() tree {
	f := gatewaytest.NewFake()
	src := f.AddFolder("", "src")
	dst := f.AddFolder("", "dst")

	f.AddFile(src, "a.txt")
	docs := f.AddFolder(src, "docs")
	f.AddFile(docs, "b.txt")
	sub := f.AddFolder(docs, "sub")
	f.AddFile(sub, "c.txt")
	f.AddFolder(src, "empty")

	return tree{fake: f, src: src, dst: dst, docs: docs, sub: sub}
}

func keys(m model.CopyMap) []string {
	return slices.Sorted(maps.Keys(m))
}

func TestCopyNewItemsMirrorsTree(t *testing.T) {
	tr := newTree()

	copied, err := CopyNewItems(context.Background(), tr.fake, tr.src, tr.dst, model.CopyMap{}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a.txt",
		"docs",
		"docs/b.txt",
		"docs/sub",
		"docs/sub/c.txt",
		"empty",
	}, keys(copied))

	assert.Equal(t, []string{"a.txt", "docs", "empty"}, tr.fake.ChildNames(tr.dst))
	assert.Equal(t, []string{"b.txt", "sub"}, tr.fake.ChildNames(copied["docs"].ID))
	assert.Equal(t, []string{"c.txt"}, tr.fake.ChildNames(copied["docs/sub"].ID))
	assert.Equal(t, "c.txt", copied["docs/sub/c.txt"].Name)

	for path, entry := range copied {
		assert.True(t, tr.fake.Exists(entry.ID), path)
	}
}

func TestCopyNewItemsIsIdempotent(t *testing.T) {
	tr := newTree()
	ctx := context.Background()

	first, err := CopyNewItems(ctx, tr.fake, tr.src, tr.dst, model.CopyMap{}, "")
	require.NoError(t, err)

	snapshot := first.Clone()
	copies := tr.fake.CallCount("copy")
	ensures := tr.fake.CallCount("ensure_folder")

	second, err := CopyNewItems(ctx, tr.fake, tr.src, tr.dst, first, "")
	require.NoError(t, err)

	assert.Equal(t, snapshot, second)
	assert.Equal(t, copies, tr.fake.CallCount("copy"))
	assert.Equal(t, ensures, tr.fake.CallCount("ensure_folder"))
}

func TestCopyNewItemsPicksUpOnlyNewItems(t *testing.T) {
	tr := newTree()
	ctx := context.Background()

	first, err := CopyNewItems(ctx, tr.fake, tr.src, tr.dst, model.CopyMap{}, "")
	require.NoError(t, err)
	before := first.Clone()
	copies := tr.fake.CallCount("copy")

	tr.fake.AddFile(tr.sub, "new.txt")

	next, err := CopyNewItems(ctx, tr.fake, tr.src, tr.dst, first.Clone(), "")
	require.NoError(t, err)

	assert.Equal(t, copies+1, tr.fake.CallCount("copy"))
	assert.Len(t, next, len(before)+1)
	for path, entry := range before {
		assert.Equal(t, entry, next[path], path)
	}

	added, ok := next["docs/sub/new.txt"]
	require.True(t, ok)
	assert.Equal(t, "new.txt", added.Name)
	assert.Contains(t, tr.fake.ChildNames(before["docs/sub"].ID), "new.txt")
}

func TestCopyNewItemsReusesExistingDestinationFolder(t *testing.T) {
	tr := newTree()
	existing := tr.fake.AddFolder(tr.dst, "docs")

	copied, err := CopyNewItems(context.Background(), tr.fake, tr.src, tr.dst, nil, "")
	require.NoError(t, err)

	assert.Equal(t, existing, copied["docs"].ID)
	assert.Equal(t, 2, tr.fake.CallCount("create_folder"), "only docs/sub and empty are created")
}

func TestCopyNewItemsUsesBasePath(t *testing.T) {
	tr := newTree()

	copied, err := CopyNewItems(context.Background(), tr.fake, tr.sub, tr.dst, model.CopyMap{}, "docs/sub")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/sub/c.txt"}, keys(copied))
}

func TestCopyNewItemsMissingIDStopsTraversal(t *testing.T) {
	tr := newTree()
	tr.fake.CopyWithoutID["b.txt"] = true

	copied, err := CopyNewItems(context.Background(), tr.fake, tr.src, tr.dst, model.CopyMap{}, "")
	require.ErrorIs(t, err, ErrNoCopyID)
	assert.Contains(t, err.Error(), "docs/b.txt")

	assert.Equal(t, []string{"a.txt", "docs"}, keys(copied))
}

func TestCopyNewItemsKeepsPartialProgressOnGatewayError(t *testing.T) {
	tr := newTree()
	boom := errors.New("backend unavailable")
	tr.fake.Fail = func(op, id string) error {
		if op == "list" && id == tr.sub {
			return boom
		}
		return nil
	}

	copied, err := CopyNewItems(context.Background(), tr.fake, tr.src, tr.dst, model.CopyMap{}, "")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a.txt", "docs", "docs/b.txt", "docs/sub"}, keys(copied))

	tr.fake.Fail = nil
	resumed, err := CopyNewItems(context.Background(), tr.fake, tr.src, tr.dst, copied, "")
	require.NoError(t, err)
	assert.Len(t, resumed, 6)
	assert.Equal(t, []string{"a.txt", "docs", "empty"}, tr.fake.ChildNames(tr.dst))
}

func TestCopyNewItemsHonoursCancellation(t *testing.T) {
	tr := newTree()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	copied, err := CopyNewItems(ctx, tr.fake, tr.src, tr.dst, model.CopyMap{}, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, copied)
}

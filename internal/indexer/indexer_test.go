package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ariadne/internal/parsers"
	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// stubParser lowers a file into one public function whose name is the
// file's trimmed content, so pipeline tests control extraction output
// without depending on a real grammar.
type stubParser struct{}

func (stubParser) Language() string { return "stub" }

func (stubParser) Parse(_ context.Context, _ string, source []byte) (parsetree.Node, error) {
	text := strings.TrimSpace(string(source))
	if text == "boom" {
		return nil, errors.New("stub: parse failed")
	}
	span := parsetree.Span{StartByte: 0, EndByte: uint32(len(source))}
	return parsetree.New(parsetree.KindSourceFile, span, "",
		parsetree.New(parsetree.KindFunction, span, "",
			parsetree.New(parsetree.KindVisibility, span, "pub"),
			parsetree.New(parsetree.KindName, span, text),
		),
	), nil
}

type stubSource struct{}

func (stubSource) ForFile(path string) parsers.Parser {
	if strings.HasSuffix(path, ".rs") {
		return stubParser{}
	}
	return nil
}

func (stubSource) Extensions() []string { return []string{".rs"} }

func TestIndexBuildsSnapshot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeSource(t, root, "src/alpha.rs", "alpha_fn")
	writeSource(t, root, "src/beta.rs", "beta_fn")
	writeSource(t, root, "notes.txt", "ignored")

	ix, err := New(Options{Root: root, Parsers: stubSource{}})
	require.NoError(t, err)

	snap, err := ix.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Stats.FilesDiscovered)
	assert.Equal(t, 2, snap.Stats.FilesIndexed)
	assert.Equal(t, 0, snap.Stats.FilesFailed)
	assert.Equal(t, 2, snap.Stats.Definitions)

	require.NotNil(t, snap.Table)
	assert.Len(t, snap.Table.LookupExact([]string{"alpha", "alpha_fn"}), 1)
	assert.Len(t, snap.Table.LookupExact([]string{"beta", "beta_fn"}), 1)
}

func TestIndexFileOrderIsDeterministic(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeSource(t, root, "src/zeta.rs", "z_fn")
	writeSource(t, root, "src/alpha.rs", "a_fn")
	writeSource(t, root, "lib.rs", "root_fn")

	ix, err := New(Options{Root: root, Parsers: stubSource{}, Workers: 4})
	require.NoError(t, err)

	snap, err := ix.Index(context.Background())
	require.NoError(t, err)

	var paths []string
	for _, file := range snap.Table.Files() {
		paths = append(paths, file.Path)
	}
	assert.Equal(t, []string{"lib.rs", "src/alpha.rs", "src/zeta.rs"}, paths)
}

func TestIndexSkipsFailingFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeSource(t, root, "src/good.rs", "good_fn")
	writeSource(t, root, "src/bad.rs", "boom")

	ix, err := New(Options{Root: root, Parsers: stubSource{}})
	require.NoError(t, err)

	snap, err := ix.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Stats.FilesIndexed)
	assert.Equal(t, 1, snap.Stats.FilesFailed)
	assert.Len(t, snap.Table.LookupExact([]string{"good", "good_fn"}), 1)
}

func TestIndexSkipsOversizedFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeSource(t, root, "src/small.rs", "small_fn")
	writeSource(t, root, "src/large.rs", strings.Repeat("x", 128))

	ix, err := New(Options{Root: root, Parsers: stubSource{}, MaxFileSize: 64})
	require.NoError(t, err)

	snap, err := ix.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Stats.FilesIndexed)
	assert.Equal(t, 1, snap.Stats.FilesFailed)
}

func TestIndexFilesExplicitList(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeSource(t, root, "src/one.rs", "one_fn")
	writeSource(t, root, "src/two.rs", "two_fn")

	ix, err := New(Options{Root: root, Parsers: stubSource{}})
	require.NoError(t, err)

	snap, err := ix.IndexFiles(context.Background(), []string{"src/one.rs"})
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Stats.FilesIndexed)
	assert.Len(t, snap.Table.LookupExact([]string{"one", "one_fn"}), 1)
	assert.Empty(t, snap.Table.LookupExact([]string{"two", "two_fn"}))
}

func TestIndexCancelledContext(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	writeSource(t, root, "src/a.rs", "a_fn")

	ix, err := New(Options{Root: root, Parsers: stubSource{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ix.Index(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

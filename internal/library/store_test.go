package library

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	macroerrors "macroreel/internal/errors"
	"macroreel/internal/macro"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEvents() []macro.InputEvent {
	return []macro.InputEvent{
		{OffsetMS: 0, Kind: macro.KeyDown("Ctrl")},
		{OffsetMS: 15, Kind: macro.KeyDown("Ctrl+S")},
		{OffsetMS: 70, Kind: macro.KeyUp("Ctrl+S")},
		{OffsetMS: 90, Kind: macro.KeyUp("Ctrl")},
	}
}

func TestOpen_SchemaAndPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	version, err := getUserVersion(s.db)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)

	_, err = os.Stat(filepath.Join(dir, DBFile))
	require.NoError(t, err)

	// reopening does not rerun the migration
	s2, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestSaveGetDelete(t *testing.T) {
	s := openTestStore(t)

	m, err := s.Save("  save-file ", sampleEvents())
	require.NoError(t, err)
	require.Len(t, m.ID, 26)
	require.Equal(t, "save-file", m.Name)
	require.Equal(t, 4, m.EventCount)
	require.Equal(t, uint64(90), m.DurationMS)

	got, err := s.Get(m.ID)
	require.NoError(t, err)
	require.Equal(t, sampleEvents(), got.Events)

	byName, err := s.GetByName("save-file")
	require.NoError(t, err)
	require.Equal(t, m.ID, byName.ID)

	resolved, err := s.Resolve("save-file")
	require.NoError(t, err)
	require.Equal(t, m.ID, resolved.ID)
	resolved, err = s.Resolve(m.ID)
	require.NoError(t, err)
	require.Equal(t, "save-file", resolved.Name)

	require.NoError(t, s.Delete(m.ID))
	_, err = s.Get(m.ID)
	require.True(t, macroerrors.Is(err, macroerrors.ErrNotFound))
	require.True(t, macroerrors.Is(s.Delete(m.ID), macroerrors.ErrNotFound))
}

func TestSaveRejects(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Save("dup", sampleEvents())
	require.NoError(t, err)
	_, err = s.Save("dup", sampleEvents())
	require.True(t, macroerrors.Is(err, macroerrors.ErrNameAlreadyExists))

	_, err = s.Save(" ", sampleEvents())
	require.True(t, macroerrors.Is(err, macroerrors.ErrInvalidRequest))

	_, err = s.Save("empty", nil)
	require.True(t, macroerrors.Is(err, macroerrors.ErrEmptyMacro))

	_, err = s.Save("backwards", []macro.InputEvent{
		{OffsetMS: 10, Kind: macro.KeyDown("A")},
		{OffsetMS: 5, Kind: macro.KeyUp("A")},
	})
	require.True(t, macroerrors.Is(err, macroerrors.ErrInvalidRequest))
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	empty, err := s.List()
	require.NoError(t, err)
	require.Empty(t, empty)

	for _, name := range []string{"first", "second", "third"} {
		_, err := s.Save(name, sampleEvents())
		require.NoError(t, err)
	}

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "third", list[0].Name)
	require.Equal(t, "first", list[2].Name)
	for _, m := range list {
		require.Nil(t, m.Events)
		require.Equal(t, 4, m.EventCount)
	}
}

func TestExportImport(t *testing.T) {
	s := openTestStore(t)
	m, err := s.Save("original", sampleEvents())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Export(m.ID, &buf))
	require.Contains(t, buf.String(), `"type": "key-down"`)

	copied, err := s.Import(&buf, "copy")
	require.NoError(t, err)
	require.NotEqual(t, m.ID, copied.ID)

	got, err := s.Get(copied.ID)
	require.NoError(t, err)
	require.Equal(t, sampleEvents(), got.Events)

	_, err = s.Import(strings.NewReader(`[{"offset_ms":0,"kind":{"type":"warp"}}]`), "bad")
	require.True(t, macroerrors.Is(err, macroerrors.ErrInvalidRequest))

	require.True(t, macroerrors.Is(s.Export("missing", &buf), macroerrors.ErrNotFound))
}

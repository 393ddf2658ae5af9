package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []Format{FormatAmex, FormatCIBC, FormatEQBank, FormatSimplii, FormatTD, FormatOFX, FormatGeneric}, r.Formats())
	assert.NotNil(t, r.Get("CIBC"))
	assert.Nil(t, r.Get("chase"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&TDParser{})
	assert.Panics(t, func() { r.Register(&TDParser{}) })
}

func TestRegistry_Resolve(t *testing.T) {
	r := DefaultRegistry()
	tdHead := []string{"date,description,debit,credit,balance"}

	res := r.Resolve("auto", tdHead)
	assert.Equal(t, FormatTD, res.Parser.Format())
	assert.True(t, res.Detected)

	res = r.Resolve("", tdHead)
	assert.Equal(t, FormatTD, res.Parser.Format())

	res = r.Resolve(" CIBC ", tdHead)
	assert.Equal(t, FormatCIBC, res.Parser.Format())
	assert.False(t, res.Detected)

	res = r.Resolve("chase", tdHead)
	assert.Equal(t, FormatGeneric, res.Parser.Format())
	assert.True(t, res.Unknown)
}

func TestScanAndMarkProcessed(t *testing.T) {
	root := t.TempDir()
	inbox := filepath.Join(root, InboxDir)
	require.NoError(t, os.MkdirAll(filepath.Join(inbox, "nested"), 0o755))
	for _, name := range []string{"b.csv", "a.OFX", "notes.md", "c.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(inbox, name), []byte("x"), 0o644))
	}

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.OFX", files[0].Name)
	assert.Equal(t, "b.csv", files[1].Name)
	assert.Equal(t, int64(1), files[1].Size)

	require.NoError(t, MarkProcessed(root, "b.csv"))
	_, err = os.Stat(filepath.Join(root, "import", "processed", "b.csv"))
	assert.NoError(t, err)

	files, err = Scan(root)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestScan_NoInbox(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

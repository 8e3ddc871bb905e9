package zipr

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onlyReader hides the Seek method of the wrapped reader so any seek attempt
// in the streaming path becomes a compile- or type-level impossibility.
type onlyReader struct {
	io.Reader
}

func TestReadStreamEntry_Order(t *testing.T) {
	ta := &testArchive{entries: []testEntry{
		{name: "one", data: []byte("first entry")},
		{name: "two", data: []byte("second entry")},
		{name: "three", data: []byte("third entry")},
	}}
	src := onlyReader{bytes.NewReader(ta.build())}

	for _, want := range ta.entries {
		f, err := ReadStreamEntry(src)
		require.NoError(t, err)
		assert.Equal(t, want.name, f.Name)
		assert.Empty(t, f.Comment)
		assert.Equal(t, uint64(0), f.DataStart())

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, want.data, got)
		require.NoError(t, f.Close())
	}

	// exactly one "no more entries" signal once the directory is reached.
	_, err := ReadStreamEntry(src)
	assert.Equal(t, io.EOF, err)
}

func TestReadStreamEntry_DrainOnClose(t *testing.T) {
	ta := &testArchive{entries: []testEntry{
		{name: "skipped", data: bytes.Repeat([]byte("skip me entirely. "), 100)},
		{name: "wanted", data: []byte("the payload that matters")},
	}}
	src := onlyReader{bytes.NewReader(ta.build())}

	// close the first entry without reading a single byte; the drain must
	// leave the source positioned exactly at the second entry's header.
	f, err := ReadStreamEntry(src)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = ReadStreamEntry(src)
	require.NoError(t, err)
	assert.Equal(t, "wanted", f.Name)
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("the payload that matters"), got)
	require.NoError(t, f.Close())
}

func TestReadStreamEntry_DeflatePartialRead(t *testing.T) {
	data := bytes.Repeat([]byte("compressible stream data. "), 200)
	ta := &testArchive{entries: []testEntry{
		{name: "d", method: Deflated, data: data, raw: deflateRaw(t, data)},
		{name: "after", data: []byte("next")},
	}}
	src := onlyReader{bytes.NewReader(ta.build())}

	f, err := ReadStreamEntry(src)
	require.NoError(t, err)
	// read a few decompressed bytes only; Close drains the raw compressed
	// remainder without decompressing it.
	_, err = io.ReadFull(f, make([]byte, 16))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = ReadStreamEntry(src)
	require.NoError(t, err)
	assert.Equal(t, "after", f.Name)
	require.NoError(t, f.Close())
}

func TestReadStreamEntry_Encrypted(t *testing.T) {
	ta := &testArchive{entries: []testEntry{
		{name: "secret", data: []byte("xxxx"), flags: flagEncrypted},
	}}

	_, err := ReadStreamEntry(onlyReader{bytes.NewReader(ta.build())})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestReadStreamEntry_DataDescriptor(t *testing.T) {
	ta := &testArchive{entries: []testEntry{
		{name: "streamed", data: []byte("xxxx"), flags: flagDataDescriptor},
	}}

	_, err := ReadStreamEntry(onlyReader{bytes.NewReader(ta.build())})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestReadStreamEntry_InvalidHeader(t *testing.T) {
	_, err := ReadStreamEntry(onlyReader{bytes.NewReader([]byte("PK\x99\x99 garbage"))})
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadStreamEntry_ChecksumMismatch(t *testing.T) {
	data := []byte("stream me and fail at the very end")
	corrupted := append([]byte(nil), data...)
	corrupted[0] ^= 0x80

	ta := &testArchive{entries: []testEntry{{name: "x", data: data, raw: corrupted}}}

	f, err := ReadStreamEntry(onlyReader{bytes.NewReader(ta.build())})
	require.NoError(t, err)
	_, err = io.ReadAll(f)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestStream_Iterator(t *testing.T) {
	ta := &testArchive{entries: []testEntry{
		{name: "one", data: []byte("first")},
		{name: "two", data: []byte("second")},
	}}

	var names []string
	var contents [][]byte
	for f, err := range Stream(onlyReader{bytes.NewReader(ta.build())}) {
		require.NoError(t, err)

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		names = append(names, f.Name)
		contents = append(contents, got)
	}

	assert.Equal(t, []string{"one", "two"}, names)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, contents)
}

func TestStream_IteratorStopsOnError(t *testing.T) {
	ta := &testArchive{entries: []testEntry{
		{name: "ok", data: []byte("fine")},
		{name: "secret", data: []byte("xxxx"), flags: flagEncrypted},
	}}

	var names []string
	var errs []error
	for f, err := range Stream(onlyReader{bytes.NewReader(ta.build())}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"ok"}, names)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrUnsupported)
}

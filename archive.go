// Package zipr reads ZIP containers.
//
// The package has two independent modes. [Open] parses the central directory
// of a random-access source and returns an [Archive] whose entries can be
// opened by index or name, each yielding a decompressed, checksum-validated
// byte stream. [ReadStreamEntry] and [Stream] instead read entries
// sequentially from a forward-only source using only the local file headers,
// without consulting the central directory at all.
//
// Archives with arbitrary data prepended before the ZIP proper are handled
// transparently; [Archive.Offset] reports how many such bytes were found.
// ZIP64 archives are supported. Writing, decryption, multi-disk archives and
// the data-descriptor streaming variant are not.
package zipr

import (
	"bufio"
	"fmt"
	"io"
)

// Options customises [Open], [ReadStreamEntry] and [Stream].
type Options struct {
	// Decode decodes entry names and comments whose UTF-8 flag is unset.
	//
	// By default, CP437 is used.
	Decode TextDecoder
}

// Archive provides random access to the entries of a ZIP container.
//
// An Archive exclusively owns its underlying source and the source's current
// position. Opening an entry reuses that position, so only the most recently
// returned [File] may be read from; opening another entry re-seeks absolutely
// and invalidates prior handles. Use [Archive.Clone] over an independently
// positioned copy of the source for concurrent access.
type Archive struct {
	src     io.ReadSeeker
	entries []Entry
	names   map[string]int
	offset  uint64
	comment []byte
	decode  TextDecoder
}

// Open parses the central directory of the ZIP container in src and returns
// an Archive over it.
//
// Errors wrap [ErrFormat] when the container is structurally invalid and
// [ErrUnsupported] when it requires features this package does not implement
// (such as multi-disk archives); errors from src itself pass through verbatim.
func Open(src io.ReadSeeker, optFns ...func(*Options)) (*Archive, error) {
	opts := &Options{
		Decode: decodeCP437,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	footer, eocdPos, err := findEOCD(src)
	if err != nil {
		return nil, err
	}

	if footer.DiskNumber != footer.CDDisk {
		return nil, fmt.Errorf("%w: multi-disk archives are not implemented", ErrUnsupported)
	}

	archiveOffset, directoryStart, count, err := directoryCounts(src, footer, eocdPos)
	if err != nil {
		return nil, err
	}

	if _, err = src.Seek(int64(directoryStart), io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: could not seek to start of central directory", ErrFormat)
	}

	a := &Archive{
		src:     src,
		entries: make([]Entry, 0, int(min(count, 65536))),
		names:   make(map[string]int),
		offset:  archiveOffset,
		comment: footer.Comment,
		decode:  opts.Decode,
	}

	// a later entry with the same name overrides an earlier one in the lookup;
	// the earlier one stays reachable by index.
	br := bufio.NewReaderSize(src, 16*1024)
	for i := uint64(0); i < count; i++ {
		e, err := readDirectoryEntry(br, archiveOffset, opts.Decode)
		if err != nil {
			return nil, err
		}

		a.names[e.Name] = len(a.entries)
		a.entries = append(a.entries, e)
	}

	return a, nil
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Offset returns the number of bytes of data prepended before the ZIP
// container proper begins within the underlying source. Normally zero.
func (a *Archive) Offset() uint64 {
	return a.offset
}

// Comment returns the raw archive comment bytes from the end of central
// directory record.
func (a *Archive) Comment() []byte {
	return a.comment
}

// Entry returns the metadata of the i-th entry without opening it, or nil if
// i is out of range.
func (a *Archive) Entry(i int) *Entry {
	if i < 0 || i >= len(a.entries) {
		return nil
	}
	return &a.entries[i]
}

// ByName opens the entry with the given name. If several entries share the
// name, the last one in directory order wins. Returns [ErrNotFound] if no
// entry has the name.
func (a *Archive) ByName(name string) (*File, error) {
	i, ok := a.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a.ByIndex(i)
}

// ByIndex opens the i-th entry in directory order.
//
// The entry's local file header is re-validated on every call and the true
// start of its compressed data derived from the local copy of the name and
// extra field lengths, which may legitimately differ in length from the
// central directory copy. The returned File borrows the archive's source;
// it need not be read to completion nor closed before opening another entry.
func (a *Archive) ByIndex(i int) (*File, error) {
	if i < 0 || i >= len(a.entries) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrNotFound, i)
	}
	e := &a.entries[i]

	if e.Encrypted {
		return nil, fmt.Errorf("%w: encrypted entries are not implemented", ErrUnsupported)
	}

	if _, err := a.src.Seek(int64(e.headerStart), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to local header error: %w", err)
	}

	var b [30]byte
	if _, err := io.ReadFull(a.src, b[:]); err != nil {
		return nil, fmt.Errorf("read local header error: %w", err)
	}
	if le.Uint32(b[:4]) != lfhSig {
		return nil, fmt.Errorf("%w: invalid local file header", ErrFormat)
	}

	// bytes 4..26 duplicate central directory fields and are already known;
	// only the local name and extra field lengths matter, since they determine
	// where the data begins.
	nameLen := uint64(le.Uint16(b[26:28]))
	extraLen := uint64(le.Uint16(b[28:30]))
	e.dataStart = e.headerStart + 30 + nameLen + extraLen

	if _, err := a.src.Seek(int64(e.dataStart), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to entry data error: %w", err)
	}

	p, err := newPipeline(e.Method, e.CRC32, io.LimitReader(a.src, int64(e.CompressedSize)))
	if err != nil {
		return nil, err
	}

	return &File{Entry: e, pipe: p}, nil
}

// Inner returns the underlying source. The source's position is undefined;
// the Archive must not be used afterwards.
func (a *Archive) Inner() io.ReadSeeker {
	return a.src
}

// Clone returns an independent copy of the archive over src, which must be an
// independently positioned reader of the same bytes the archive was opened
// with (for example a second os.Open of the same file, or a fresh
// bytes.Reader). The copy shares no mutable state with the original, so both
// can open and read entries concurrently.
func (a *Archive) Clone(src io.ReadSeeker) *Archive {
	c := &Archive{
		src:     src,
		entries: make([]Entry, len(a.entries)),
		names:   make(map[string]int, len(a.names)),
		offset:  a.offset,
		comment: append([]byte(nil), a.comment...),
		decode:  a.decode,
	}
	for i := range a.entries {
		c.entries[i] = a.entries[i].clone()
	}
	for name, i := range a.names {
		c.names[name] = i
	}
	return c
}

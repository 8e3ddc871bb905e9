package zipr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
)

// ReadStreamEntry reads the entry at the current position of a forward-only
// source, using only its local file header. No seeking is performed and the
// central directory is never consulted, so metadata that exists only there is
// absent: the comment is empty, DataStart and the external attributes are
// zero.
//
// Returns io.EOF once the central directory is reached, meaning no more
// entries; that is the normal end and not a corruption error. Entries that
// are encrypted or that use a trailing data descriptor (their sizes unknown
// until after the payload) are rejected with [ErrUnsupported].
//
// The returned File owns its metadata: closing it advances src to the first
// byte after the entry, so the next call reads the next header. See [Stream]
// for an iterator doing exactly that.
func ReadStreamEntry(src io.Reader, optFns ...func(*Options)) (*File, error) {
	opts := &Options{
		Decode: decodeCP437,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	// transport failures pass through verbatim; a source that ends cleanly at
	// a header boundary reads as io.EOF, a partial header as ErrUnexpectedEOF.
	var sb [4]byte
	if _, err := io.ReadFull(src, sb[:]); err != nil {
		return nil, err
	}

	switch sig := le.Uint32(sb[:]); sig {
	case lfhSig:
	case cdfhSig:
		// the central directory follows the last entry's data; reaching it
		// means every entry has been read.
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("%w: invalid local file header", ErrFormat)
	}

	b := make([]byte, 26)
	if _, err := io.ReadFull(src, b); err != nil {
		return nil, fmt.Errorf("read local header error: %w", err)
	}

	data := &struct {
		VersionMadeBy    uint16
		Flags            uint16
		Method           uint16
		ModifiedTime     uint16
		ModifiedDate     uint16
		CRC32            uint32
		CompressedSize   uint32
		UncompressedSize uint32
		FileNameLength   uint16
		ExtraFieldLength uint16
	}{}
	if err := binary.Read(bytes.NewReader(b), le, data); err != nil {
		return nil, fmt.Errorf("unmarshal local header error: %w", err)
	}

	n, m := int(data.FileNameLength), int(data.ExtraFieldLength)
	nm := make([]byte, n+m)
	if _, err := io.ReadFull(src, nm); err != nil {
		return nil, fmt.Errorf("read local header error: %w", err)
	}
	rawName, extra := nm[:n:n], nm[n:]

	var name string
	if data.Flags&flagUTF8 != 0 {
		name = decodeUTF8(rawName)
	} else {
		name = opts.Decode(rawName)
	}

	e := Entry{
		System:           systemFromByte(uint8(data.VersionMadeBy >> 8)),
		VersionMadeBy:    uint8(data.VersionMadeBy),
		Encrypted:        data.Flags&flagEncrypted != 0,
		Method:           Method(data.Method),
		Modified:         msDosTimeToTime(data.ModifiedDate, data.ModifiedTime),
		CRC32:            data.CRC32,
		CompressedSize:   uint64(data.CompressedSize),
		UncompressedSize: uint64(data.UncompressedSize),
		Name:             name,
		RawName:          rawName,
		// the comment and external attributes only exist in the central
		// directory; header and data offsets are meaningless without seeking.
	}

	if err := parseExtraField(&e, extra); err != nil {
		return nil, err
	}

	if e.Encrypted {
		return nil, fmt.Errorf("%w: encrypted entries are not implemented", ErrUnsupported)
	}
	if data.Flags&flagDataDescriptor != 0 {
		return nil, fmt.Errorf("%w: entry sizes are not available in the local header", ErrUnsupported)
	}

	p, err := newPipeline(e.Method, e.CRC32, io.LimitReader(src, int64(e.CompressedSize)))
	if err != nil {
		return nil, err
	}

	return &File{Entry: &e, pipe: p, owned: true}, nil
}

// Stream returns an iterator over the entries of src in file order, reading
// each from its local header only. The iterator stops after yielding an error.
//
// Each yielded File is closed once the yield returns, which drains whatever
// compressed bytes the body did not consume; read everything you need before
// returning. The iterator ends, without error, when the central directory is
// reached.
func Stream(src io.Reader, optFns ...func(*Options)) iter.Seq2[*File, error] {
	return func(yield func(*File, error) bool) {
		for {
			f, err := ReadStreamEntry(src, optFns...)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}

			ok := yield(f, nil)
			if err = f.Close(); err != nil && ok {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
		}
	}
}

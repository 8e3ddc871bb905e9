package zipr

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// testEntry describes one entry for buildArchive. Zero values give a Stored,
// unencrypted entry whose raw bytes equal its content and whose CRC32 is
// computed from the content.
type testEntry struct {
	name    string
	method  Method
	flags   uint16
	data    []byte // uncompressed content
	raw     []byte // bytes stored in the archive; defaults to data
	crc     uint32 // declared checksum; defaults to crc32 of data
	comment string
	system  uint8
	attrs   uint32
	modTime uint16
	modDate uint16
	// zip64 saturates the classic size and offset fields of the central
	// directory record and appends a ZIP64 extended information extra field
	// carrying the real values.
	zip64 bool
	extra []byte // appended to the central extra field after any ZIP64 record
}

// testArchive assembles a ZIP container byte by byte, with enough control to
// produce what [archive/zip.Writer] will not: junk-prefixed archives, ZIP64
// records, encrypted flags, deliberately corrupted payloads and offsets.
type testArchive struct {
	entries []testEntry
	comment string
	zip64   bool // emit a ZIP64 EOCD record and locator
	// cdOffsetDelta is added to the recorded central directory offset to
	// simulate inconsistent arithmetic.
	cdOffsetDelta uint32
}

func (t *testArchive) build() []byte {
	buf := &bytes.Buffer{}
	w := func(vs ...any) {
		for _, v := range vs {
			if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
				panic(err)
			}
		}
	}

	offsets := make([]uint32, len(t.entries))
	for i, e := range t.entries {
		offsets[i] = uint32(buf.Len())

		raw := e.raw
		if raw == nil {
			raw = e.data
		}
		crc := e.crc
		if crc == 0 {
			crc = crc32.ChecksumIEEE(e.data)
		}

		w(uint32(lfhSig), uint16(20), e.flags, uint16(e.method), e.modTime, e.modDate,
			crc, uint32(len(raw)), uint32(len(e.data)), uint16(len(e.name)), uint16(0))
		w([]byte(e.name), raw)
	}

	cdStart := uint32(buf.Len())
	for i, e := range t.entries {
		crc := e.crc
		if crc == 0 {
			crc = crc32.ChecksumIEEE(e.data)
		}
		raw := e.raw
		if raw == nil {
			raw = e.data
		}

		csize, usize, offset := uint32(len(raw)), uint32(len(e.data)), offsets[i]
		extra := e.extra
		if e.zip64 {
			z := &bytes.Buffer{}
			_ = binary.Write(z, binary.LittleEndian, uint16(zip64ExtraTag))
			_ = binary.Write(z, binary.LittleEndian, uint16(24))
			_ = binary.Write(z, binary.LittleEndian, uint64(len(e.data)))
			_ = binary.Write(z, binary.LittleEndian, uint64(len(raw)))
			_ = binary.Write(z, binary.LittleEndian, uint64(offsets[i]))
			extra = append(z.Bytes(), e.extra...)
			csize, usize, offset = 0xffffffff, 0xffffffff, 0xffffffff
		}

		w(uint32(cdfhSig), uint16(e.system)<<8|20, uint16(20), e.flags, uint16(e.method),
			e.modTime, e.modDate, crc, csize, usize,
			uint16(len(e.name)), uint16(len(extra)), uint16(len(e.comment)),
			uint16(0), uint16(0), e.attrs, offset)
		w([]byte(e.name), extra, []byte(e.comment))
	}
	cdSize := uint32(buf.Len()) - cdStart

	n := len(t.entries)
	if t.zip64 {
		z64Start := uint64(buf.Len())
		w(uint32(eocd64Sig), uint64(44), uint16(45), uint16(45), uint32(0), uint32(0),
			uint64(n), uint64(n), uint64(cdSize), uint64(cdStart))
		w(uint32(loc64Sig), uint32(0), z64Start, uint32(1))
	}

	w(uint32(eocdSig), uint16(0), uint16(0), uint16(n), uint16(n),
		cdSize, cdStart+t.cdOffsetDelta, uint16(len(t.comment)))
	w([]byte(t.comment))

	return buf.Bytes()
}

// withJunk returns the archive bytes with junk prepended, leaving every
// recorded offset too small by len(junk).
func withJunk(junk, archive []byte) []byte {
	return append(append([]byte(nil), junk...), archive...)
}

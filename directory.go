package zipr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// general purpose bit flags.
	flagEncrypted      = 1 << 0
	flagDataDescriptor = 1 << 3
	flagUTF8           = 1 << 11

	// zip64ExtraTag marks the ZIP64 extended information extra field.
	zip64ExtraTag = 0x0001
)

// readDirectoryEntry parses one central directory record at the current
// position of src into an Entry. archiveOffset is added to the recorded local
// header offset unconditionally, translating it into the source's coordinate
// space.
func readDirectoryEntry(src io.Reader, archiveOffset uint64, decode TextDecoder) (e Entry, err error) {
	b := make([]byte, 46)
	if _, err = io.ReadFull(src, b); err != nil {
		return e, fmt.Errorf("read central directory header error: %w", err)
	}

	data := &struct {
		Signature         uint32
		VersionMadeBy     uint16
		ReaderVersion     uint16
		Flags             uint16
		Method            uint16
		ModifiedTime      uint16
		ModifiedDate      uint16
		CRC32             uint32
		CompressedSize    uint32
		UncompressedSize  uint32
		FileNameLength    uint16
		ExtraFieldLength  uint16
		FileCommentLength uint16
		DiskNumber        uint16
		InternalAttrs     uint16
		ExternalAttrs     uint32
		Offset            uint32
	}{}
	if err = binary.Read(bytes.NewReader(b), binary.LittleEndian, data); err != nil {
		return e, fmt.Errorf("unmarshal central directory header error: %w", err)
	}

	if data.Signature != cdfhSig {
		return e, fmt.Errorf("%w: invalid central directory header", ErrFormat)
	}

	n, m, k := int(data.FileNameLength), int(data.ExtraFieldLength), int(data.FileCommentLength)
	nmk := make([]byte, n+m+k)
	if _, err = io.ReadFull(src, nmk); err != nil {
		return e, fmt.Errorf("read central directory header error: %w", err)
	}
	rawName, extra, rawComment := nmk[:n:n], nmk[n:n+m], nmk[n+m:]

	var name, comment string
	if data.Flags&flagUTF8 != 0 {
		name, comment = decodeUTF8(rawName), decodeUTF8(rawComment)
	} else {
		name, comment = decode(rawName), decode(rawComment)
	}

	e = Entry{
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
		Comment:          comment,
		ExternalAttrs:    data.ExternalAttrs,
		headerStart:      uint64(data.Offset),
	}

	if err = parseExtraField(&e, extra); err != nil {
		return e, err
	}

	// account for shifted zip offsets.
	e.headerStart += archiveOffset

	return e, nil
}

// parseExtraField scans the extra field bytes as a flat sequence of (tag,
// length, payload) records; there is no record count, termination is buffer
// exhaustion. Unknown tags are skipped by their declared length. The ZIP64
// extended information record widens each size/offset field only when the
// corresponding classic field saturated at 0xffffffff, in fixed order:
// uncompressed size, compressed size, header start. The trailing disk start
// number is defined by the format but not parsed.
//
// A truncated record reads as the widened field simply being absent: the
// io.EOF or io.ErrUnexpectedEOF from running off the buffer is swallowed.
// Anything else aborts the open.
func parseExtraField(e *Entry, extra []byte) error {
	err := scanExtraField(e, extra)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return err
}

func scanExtraField(e *Entry, extra []byte) error {
	r := bytes.NewReader(extra)

	for r.Len() > 0 {
		var tag, length uint16
		if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return err
		}

		left := int64(length)
		if tag == zip64ExtraTag {
			if e.UncompressedSize == 0xffffffff {
				if err := binary.Read(r, binary.LittleEndian, &e.UncompressedSize); err != nil {
					return err
				}
				left -= 8
			}
			if e.CompressedSize == 0xffffffff {
				if err := binary.Read(r, binary.LittleEndian, &e.CompressedSize); err != nil {
					return err
				}
				left -= 8
			}
			if e.headerStart == 0xffffffff {
				if err := binary.Read(r, binary.LittleEndian, &e.headerStart); err != nil {
					return err
				}
				left -= 8
			}
		}

		if left > 0 {
			if _, err := r.Seek(left, io.SeekCurrent); err != nil {
				return err
			}
		}
	}

	return nil
}

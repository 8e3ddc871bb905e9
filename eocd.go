package zipr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	lfhSig    = 0x04034b50
	cdfhSig   = 0x02014b50
	eocdSig   = 0x06054b50
	eocd64Sig = 0x06064b50
	loc64Sig  = 0x07064b50
)

var (
	eocdSigBytes   = putUint32(eocdSig)
	eocd64SigBytes = putUint32(eocd64Sig)
)

// le saves some typing; every multi-byte integer in the format is little-endian.
var le = binary.LittleEndian

func putUint32(v uint32) (b []byte) {
	b = make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// eocdRecord models the classic end of central directory record.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#End_of_central_directory_record_(EOCD).
type eocdRecord struct {
	DiskNumber    uint16
	CDDisk        uint16
	CDCountOnDisk uint16
	CDCount       uint16
	CDSize        uint32
	CDOffset      uint32
	Comment       []byte
}

// findEOCD scans backwards from end of source for the EOCD signature,
// accounting for a trailing comment of up to 65535 bytes. Returns the parsed
// record and the absolute position the signature was found at.
func findEOCD(src io.ReadSeeker) (r eocdRecord, pos uint64, err error) {
	end, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return r, 0, fmt.Errorf("find EOCD: seek to end error: %w", err)
	}
	if end < 22 {
		return r, 0, fmt.Errorf("%w: too small for an end of central directory record", ErrFormat)
	}

	// the signature cannot sit earlier than 22+65535 bytes from the end, so a
	// single window read covers every possible comment length.
	lo := max(0, end-22-65535)
	if _, err = src.Seek(lo, io.SeekStart); err != nil {
		return r, 0, fmt.Errorf("find EOCD: seek to %d error: %w", lo, err)
	}

	window := make([]byte, end-lo)
	if _, err = io.ReadFull(src, window); err != nil {
		return r, 0, fmt.Errorf("find EOCD: read error: %w", err)
	}

	for i := len(window) - 22; i >= 0; i-- {
		if !bytes.Equal(window[i:i+4], eocdSigBytes) {
			continue
		}

		if r, err = unmarshalEOCDRecord(([22]byte)(window[i:i+22]), window[i+22:]); err != nil {
			return r, 0, err
		}

		return r, uint64(lo) + uint64(i), nil
	}

	return r, 0, fmt.Errorf("%w: end of central directory record not found", ErrFormat)
}

// unmarshalEOCDRecord decodes the 22-byte fixed block as an eocdRecord; rest
// holds the bytes following it, out of which the comment is taken.
func unmarshalEOCDRecord(b [22]byte, rest []byte) (r eocdRecord, err error) {
	data := &struct {
		Signature     uint32
		DiskNumber    uint16
		CDDisk        uint16
		CDCountOnDisk uint16
		CDCount       uint16
		CDSize        uint32
		CDOffset      uint32
		CommentLength uint16
	}{}

	if err = binary.Read(bytes.NewReader(b[:]), binary.LittleEndian, data); err != nil {
		return r, fmt.Errorf("unmarshal EOCD error: %w", err)
	}

	if int(data.CommentLength) > len(rest) {
		return r, fmt.Errorf("%w: truncated archive comment", ErrFormat)
	}

	return eocdRecord{
		DiskNumber:    data.DiskNumber,
		CDDisk:        data.CDDisk,
		CDCountOnDisk: data.CDCountOnDisk,
		CDCount:       data.CDCount,
		CDSize:        data.CDSize,
		CDOffset:      data.CDOffset,
		Comment:       append([]byte(nil), rest[:data.CommentLength]...),
	}, nil
}

// zip64Locator models the ZIP64 end of central directory locator.
type zip64Locator struct {
	CDDisk     uint32
	EOCD64     uint64 // recorded offset of the ZIP64 EOCD record
	TotalDisks uint32
}

// findZip64Locator probes for the ZIP64 locator at its fixed position, 20
// bytes before the classic record's start. A short file or a mismatched
// signature means a plain (non-ZIP64) archive, not an error.
func findZip64Locator(src io.ReadSeeker, commentLen int) (*zip64Locator, error) {
	// the locator, if present, sits 20 bytes in front of the classic record,
	// which is itself 22+commentLen bytes from the end.
	if _, err := src.Seek(-(20 + 22 + int64(commentLen)), io.SeekEnd); err != nil {
		// empty or tiny archives have no room for a locator; that is fine.
		return nil, nil
	}

	b := make([]byte, 20)
	if _, err := io.ReadFull(src, b); err != nil {
		return nil, fmt.Errorf("read ZIP64 locator error: %w", err)
	}

	data := &struct {
		Signature  uint32
		CDDisk     uint32
		EOCD64     uint64
		TotalDisks uint32
	}{}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("unmarshal ZIP64 locator error: %w", err)
	}

	if data.Signature != loc64Sig {
		return nil, nil
	}

	return &zip64Locator{
		CDDisk:     data.CDDisk,
		EOCD64:     data.EOCD64,
		TotalDisks: data.TotalDisks,
	}, nil
}

// zip64Record models the ZIP64 end of central directory record.
type zip64Record struct {
	VersionMadeBy uint16
	ReaderVersion uint16
	DiskNumber    uint32
	CDDisk        uint32
	CDCountOnDisk uint64
	CDCount       uint64
	CDSize        uint64
	CDOffset      uint64
}

// findZip64EOCD searches forward for the ZIP64 EOCD record between the
// locator's recorded offset and upperBound (the classic record's position
// minus the minimum combined size of the ZIP64 record and locator). The
// recorded offset cannot be trusted directly: it is skewed by the same
// unknown number of prepended bytes that skews every other offset, so the
// correction has to be discovered by this search. The displacement between
// the recorded and the actual position is exactly that archive offset.
func findZip64EOCD(src io.ReadSeeker, recorded, upperBound uint64) (r zip64Record, archiveOffset uint64, err error) {
	const chunkSize = 64 * 1024

	for pos := recorded; pos <= upperBound; {
		n := min(uint64(chunkSize), upperBound-pos+4)
		buf := make([]byte, n)
		if _, err = src.Seek(int64(pos), io.SeekStart); err != nil {
			return r, 0, fmt.Errorf("find ZIP64 EOCD: seek to %d error: %w", pos, err)
		}
		if _, err = io.ReadFull(src, buf); err != nil {
			return r, 0, fmt.Errorf("find ZIP64 EOCD: read error: %w", err)
		}

		if i := bytes.Index(buf, eocd64SigBytes); i != -1 && pos+uint64(i) <= upperBound {
			at := pos + uint64(i)
			if _, err = src.Seek(int64(at), io.SeekStart); err != nil {
				return r, 0, fmt.Errorf("find ZIP64 EOCD: seek to %d error: %w", at, err)
			}
			if r, err = readZip64Record(src); err != nil {
				return r, 0, err
			}

			return r, at - recorded, nil
		}

		// overlap by 3 bytes so a signature split across chunks is still found.
		if n < 4 {
			break
		}
		pos += n - 3
	}

	return r, 0, fmt.Errorf("%w: ZIP64 end of central directory record not found", ErrFormat)
}

func readZip64Record(src io.Reader) (r zip64Record, err error) {
	b := make([]byte, 56)
	if _, err = io.ReadFull(src, b); err != nil {
		return r, fmt.Errorf("read ZIP64 EOCD error: %w", err)
	}

	data := &struct {
		Signature     uint32
		RecordSize    uint64
		VersionMadeBy uint16
		ReaderVersion uint16
		DiskNumber    uint32
		CDDisk        uint32
		CDCountOnDisk uint64
		CDCount       uint64
		CDSize        uint64
		CDOffset      uint64
	}{}
	if err = binary.Read(bytes.NewReader(b), binary.LittleEndian, data); err != nil {
		return r, fmt.Errorf("unmarshal ZIP64 EOCD error: %w", err)
	}

	return zip64Record{
		VersionMadeBy: data.VersionMadeBy,
		ReaderVersion: data.ReaderVersion,
		DiskNumber:    data.DiskNumber,
		CDDisk:        data.CDDisk,
		CDCountOnDisk: data.CDCountOnDisk,
		CDCount:       data.CDCount,
		CDSize:        data.CDSize,
		CDOffset:      data.CDOffset,
	}, nil
}

// directoryCounts reconciles the recorded directory position against the
// actual position the EOCD record was found at, deriving the number of bytes
// prepended before the archive, the absolute start of the central directory,
// and the entry count. The classic and ZIP64 branches are distinct: the
// classic one derives the offset arithmetically, the ZIP64 one discovers it
// with a second, forward-bounded search.
func directoryCounts(src io.ReadSeeker, footer eocdRecord, eocdPos uint64) (archiveOffset, directoryStart, count uint64, err error) {
	locator, err := findZip64Locator(src, len(footer.Comment))
	if err != nil {
		return 0, 0, 0, err
	}

	if locator == nil {
		// archives with data prepended to them record offsets that are all too
		// small; the error is the difference between the position the EOCD was
		// actually found at and the position it claims to be at.
		cdEnd := uint64(footer.CDSize) + uint64(footer.CDOffset)
		if eocdPos < cdEnd {
			return 0, 0, 0, fmt.Errorf("%w: invalid central directory size or offset", ErrFormat)
		}

		archiveOffset = eocdPos - cdEnd
		directoryStart = uint64(footer.CDOffset) + archiveOffset
		return archiveOffset, directoryStart, uint64(footer.CDCountOnDisk), nil
	}

	if locator.TotalDisks > 1 {
		return 0, 0, 0, fmt.Errorf("%w: multi-disk archives are not implemented", ErrUnsupported)
	}
	if uint32(footer.DiskNumber) != locator.CDDisk {
		return 0, 0, 0, fmt.Errorf("%w: multi-disk archives are not implemented", ErrUnsupported)
	}

	// 60 bytes is the minimum combined size of the ZIP64 EOCD record and its
	// locator, both of which must fit between the record and the classic EOCD.
	if eocdPos < 60 {
		return 0, 0, 0, fmt.Errorf("%w: no room for a ZIP64 end of central directory record", ErrFormat)
	}

	footer64, archiveOffset, err := findZip64EOCD(src, locator.EOCD64, eocdPos-60)
	if err != nil {
		return 0, 0, 0, err
	}

	if footer64.DiskNumber != footer64.CDDisk {
		return 0, 0, 0, fmt.Errorf("%w: multi-disk archives are not implemented", ErrUnsupported)
	}

	directoryStart = footer64.CDOffset + archiveOffset
	return archiveOffset, directoryStart, footer64.CDCount, nil
}

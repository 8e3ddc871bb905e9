package zipr

import (
	"path"
	"strings"
	"time"
)

// System identifies the system on which an entry was made, from the high byte
// of the central directory's version-made-by field.
type System uint8

const (
	SystemDos  System = 0
	SystemUnix System = 3
	// SystemUnknown covers every other value; no attribute interpretation is
	// attempted for it.
	SystemUnknown System = 255
)

func systemFromByte(b uint8) System {
	switch b {
	case 0:
		return SystemDos
	case 3:
		return SystemUnix
	default:
		return SystemUnknown
	}
}

func (s System) String() string {
	switch s {
	case SystemDos:
		return "MS-DOS"
	case SystemUnix:
		return "Unix"
	default:
		return "unknown"
	}
}

const (
	s_IFDIR = 0o0040000
	s_IFREG = 0o0100000
)

// Entry is the metadata of a single archive entry, parsed from the central
// directory (random access) or from a local file header (streaming).
type Entry struct {
	// System is the system tag from the version-made-by high byte.
	System System
	// VersionMadeBy is the version-made-by low byte.
	VersionMadeBy uint8
	// Encrypted reports whether general purpose flag bit 0 is set. Encrypted
	// entries can be listed but never opened.
	Encrypted bool
	// Method is the declared compression method.
	Method Method
	// Modified is the last-modified timestamp decoded from the MS-DOS date and
	// time fields. The resolution is 2s.
	Modified time.Time
	// CRC32 is the declared checksum of the uncompressed bytes.
	CRC32 uint32
	// CompressedSize and UncompressedSize are 64-bit sizes, widened from the
	// classic 32-bit fields through the ZIP64 extra field whenever a classic
	// field saturates at 0xffffffff.
	CompressedSize   uint64
	UncompressedSize uint64
	// Name is the decoded entry name: lossy UTF-8 if general purpose flag bit
	// 11 is set, the legacy code page otherwise. RawName keeps the on-disk
	// bytes.
	Name    string
	RawName []byte
	// Comment is the entry comment. Always empty in streaming mode; the comment
	// only exists in the central directory.
	Comment string
	// ExternalAttrs holds the external file attributes, interpreted per System.
	ExternalAttrs uint32

	// headerStart and dataStart are absolute offsets into the underlying
	// source, already corrected for any bytes prepended before the archive:
	// never the raw recorded values. dataStart is resolved from the local
	// header on first access and cached; zero in streaming mode.
	headerStart uint64
	dataStart   uint64
}

// HeaderStart returns the absolute offset of the entry's local file header in
// the underlying source.
func (e *Entry) HeaderStart() uint64 { return e.headerStart }

// DataStart returns the absolute offset of the entry's first compressed byte.
// The value is only known after the entry has been opened at least once; it is
// zero before that, and always zero for streamed entries.
func (e *Entry) DataStart() uint64 { return e.dataStart }

// Version returns the version-made-by value split into major and minor parts.
func (e *Entry) Version() (major, minor uint8) {
	return e.VersionMadeBy / 10, e.VersionMadeBy % 10
}

// IsDir reports whether the entry name denotes a directory.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/") || strings.HasSuffix(e.Name, `\`)
}

// IsFile reports whether the entry is a regular file.
func (e *Entry) IsFile() bool { return !e.IsDir() }

// UnixMode returns the Unix mode bits for the entry if they can be derived
// from the external attributes: directly for Unix entries, synthesized from
// the directory and read-only bits for MS-DOS entries. ok is false when the
// attributes are zero or the system is unknown.
func (e *Entry) UnixMode() (mode uint32, ok bool) {
	if e.ExternalAttrs == 0 {
		return 0, false
	}

	switch e.System {
	case SystemUnix:
		return e.ExternalAttrs >> 16, true
	case SystemDos:
		if e.ExternalAttrs&0x10 != 0 {
			mode = s_IFDIR | 0o0775
		} else {
			mode = s_IFREG | 0o0664
		}
		if e.ExternalAttrs&0x01 != 0 {
			// read-only bit; strip write permissions.
			mode &= 0o0555
		}
		return mode, true
	default:
		return 0, false
	}
}

// SanitizedName returns the entry name in a form safe to join to a local
// directory: truncated at the first NUL byte, stripped of leading slashes and
// drive-like prefixes, with "." and ".." elements removed.
func (e *Entry) SanitizedName() string {
	name := e.Name
	if i := strings.IndexByte(name, 0); i != -1 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, `\`, "/")

	parts := make([]string, 0, strings.Count(name, "/")+1)
	for _, p := range strings.Split(name, "/") {
		switch p {
		case "", ".", "..":
		default:
			parts = append(parts, p)
		}
	}

	return path.Join(parts...)
}

// msDosTimeToTime converts an MS-DOS date and time into a time.Time.
// The resolution is 2s.
// See: https://learn.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-dosdatetimetofiletime
func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		// time bits 0-4: second/2; 5-10: minute; 11-15: hour
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0, // nanoseconds

		time.UTC,
	)
}

// clone returns a deep copy so that duplicated archives share no mutable
// state.
func (e *Entry) clone() Entry {
	c := *e
	c.RawName = append([]byte(nil), e.RawName...)
	return c
}

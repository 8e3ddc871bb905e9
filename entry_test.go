package zipr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMSDosTimeToTime(t *testing.T) {
	// 2018-11-17 10:38:30
	var dosDate uint16 = (2018-1980)<<9 | 11<<5 | 17
	var dosTime uint16 = 10<<11 | 38<<5 | 15

	got := msDosTimeToTime(dosDate, dosTime)
	assert.Equal(t, time.Date(2018, time.November, 17, 10, 38, 30, 0, time.UTC), got)
}

func TestEntry_Version(t *testing.T) {
	e := Entry{VersionMadeBy: 45}
	major, minor := e.Version()
	assert.Equal(t, uint8(4), major)
	assert.Equal(t, uint8(5), minor)
}

func TestEntry_IsDir(t *testing.T) {
	assert.True(t, (&Entry{Name: "a/b/"}).IsDir())
	assert.True(t, (&Entry{Name: `a\b\`}).IsDir())
	assert.False(t, (&Entry{Name: "a/b"}).IsDir())
	assert.True(t, (&Entry{Name: "a/b"}).IsFile())
}

func TestEntry_UnixMode(t *testing.T) {
	tests := []struct {
		name     string
		entry    Entry
		expected uint32
		ok       bool
	}{
		{
			name:     "unix regular file",
			entry:    Entry{System: SystemUnix, ExternalAttrs: 0o100644 << 16},
			expected: 0o100644,
			ok:       true,
		},
		{
			name:     "dos directory",
			entry:    Entry{System: SystemDos, ExternalAttrs: 0x10},
			expected: s_IFDIR | 0o0775,
			ok:       true,
		},
		{
			name:     "dos read-only file",
			entry:    Entry{System: SystemDos, ExternalAttrs: 0x01},
			expected: (s_IFREG | 0o0664) & 0o0555,
			ok:       true,
		},
		{
			name:  "no attributes",
			entry: Entry{System: SystemUnix},
		},
		{
			name:  "unknown system",
			entry: Entry{System: SystemUnknown, ExternalAttrs: 0x10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, ok := tt.entry.UnixMode()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestEntry_SanitizedName(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"a.txt", "a.txt"},
		{"dir/sub/file", "dir/sub/file"},
		{"/etc/passwd", "etc/passwd"},
		{"../../escape", "escape"},
		{"a/../b", "a/b"},
		{"trailing\x00junk", "trailing"},
		{`windows\path\file`, "windows/path/file"},
		{"./x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.out, (&Entry{Name: tt.in}).SanitizedName())
		})
	}
}

func TestSystemFromByte(t *testing.T) {
	assert.Equal(t, SystemDos, systemFromByte(0))
	assert.Equal(t, SystemUnix, systemFromByte(3))
	assert.Equal(t, SystemUnknown, systemFromByte(7))
	assert.Equal(t, "Unix", SystemUnix.String())
}

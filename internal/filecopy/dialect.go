package filecopy

import (
	"regexp"
	"strconv"
	"strings"
)

// Dialect builds the device commands used by a Synchronizer and interprets
// their replies. It is the only place that knows the device's wording.
type Dialect interface {
	// FreeSpaceCommand lists a volume; its raw reply reports free bytes.
	FreeSpaceCommand(directory string) string
	// ParseFreeBytes extracts the free byte count from a listing.
	ParseFreeBytes(listing string) (int64, bool)

	// ExistsCommand lists a single file.
	ExistsCommand(directory, name string) string
	// ReportsMissing reports whether a single-file listing says the file
	// does not exist.
	ReportsMissing(listing string) bool

	// ChecksumCommand asks for the MD5 of a file, structured.
	ChecksumCommand(remotePath string) string
	// ParseChecksum extracts the MD5 from a structured reply.
	ParseChecksum(body map[string]any) (string, bool)
}

// FreeBytesMarker and ChecksumField are what NX-OS replies contain.
const (
	FreeBytesMarker = "bytes free"
	MissingMarker   = "No such file"
	ChecksumField   = "file_content_md5sum"
)

var freeBytesPattern = regexp.MustCompile(`(\d+) bytes free`)

// NXOS is the Dialect of Cisco NX-OS.
type NXOS struct{}

func (NXOS) FreeSpaceCommand(directory string) string {
	return "dir " + directory
}

func (NXOS) ParseFreeBytes(listing string) (int64, bool) {
	m := freeBytesPattern.FindStringSubmatch(listing)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (NXOS) ExistsCommand(directory, name string) string {
	return "dir " + directory + "/" + name
}

func (NXOS) ReportsMissing(listing string) bool {
	return strings.Contains(listing, MissingMarker)
}

func (NXOS) ChecksumCommand(remotePath string) string {
	return "show file " + remotePath + " md5sum"
}

func (NXOS) ParseChecksum(body map[string]any) (string, bool) {
	v, ok := body[ChecksumField]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

var _ Dialect = NXOS{}

package filecopy

import (
	"crypto/md5" //nolint:gosec // parity with the device's md5sum, not security
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// HashFile returns the hex MD5 of the file at path, reading blockSize bytes
// at a time. Only one block is held in memory.
func HashFile(path string, blockSize int) (string, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	buf := make([]byte, blockSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// isRegularFile reports whether path names a regular file.
func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

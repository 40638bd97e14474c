// Package checksum computes the content digests stored in provenance records.
package checksum

import (
	"crypto/md5" //nolint:gosec // MD5 is the algorithm published in nfo:FileHash
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Algorithm is the digest name advertised alongside stored hashes.
const Algorithm = "MD5"

// Sum returns the hex-encoded MD5 digest of data.
func Sum(data []byte) string {
	h := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(h[:])
}

// File streams the file at path through MD5 and returns the hex digest.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum: open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

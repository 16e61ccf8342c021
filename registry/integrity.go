package registry

import (
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"io"
)

const integrityPrefix = "sha256-"

// Integrity returns the SRI hash of data in the sha256-<base64> form used
// throughout source.json.
func Integrity(data []byte) string {
	sum := sha256.Sum256(data)
	return integrityPrefix + base64.StdEncoding.EncodeToString(sum[:])
}

// IntegrityOf hashes r to EOF without buffering it.
func IntegrityOf(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return sri(h), nil
}

func sri(h hash.Hash) string {
	return integrityPrefix + base64.StdEncoding.EncodeToString(h.Sum(nil))
}

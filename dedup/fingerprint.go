package dedup

import (
	"fmt"
	"io"
	"os"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/docrag/core"
)

// fingerprintSize is the BLAKE2b digest length in bytes.
const fingerprintSize = 32

// Fingerprint hashes the content of the file at path. The result depends
// only on the bytes in the file, never on its name or timestamps.
func Fingerprint(path string) (core.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer f.Close()
	return FingerprintReader(f)
}

// FingerprintReader hashes everything read from r.
func FingerprintReader(r io.Reader) (core.Fingerprint, error) {
	h, err := blake2b.New(fingerprintSize, nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return core.FingerprintFromSum(h.Sum(nil)), nil
}

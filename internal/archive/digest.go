package archive

import (
	"encoding/hex"

	"codeberg.org/mutker/threadstone/internal/result"
	"github.com/zeebo/blake3"
)

// Digest identifies a record by the BLAKE3 hash of its canonical form.
// Signing a record does not change its digest.
func Digest(rec result.Record) (string, error) {
	canonical, err := result.Canonical(rec)
	if err != nil {
		return "", err
	}

	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep fingerprints of different record kinds from colliding.
const (
	DomainDataPoint = "keepsake/data-point/v1"
	DomainQuestion  = "keepsake/question/v1"
	DomainSnapshot  = "keepsake/snapshot/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a content hash of a data point's full wire form. Two
// data points with the same fingerprint are identical for merge purposes.
// Timestamps are compared as instants, not by their zone offset.
func Fingerprint(dp DataPoint) (string, error) {
	dp.Timestamp = dp.Timestamp.UTC()
	canonical, err := MarshalCanonical(dp)
	if err != nil {
		return "", fmt.Errorf("fingerprint data point %s: %w", dp.ID, err)
	}
	return hashWithDomain(DomainDataPoint, canonical), nil
}

// QuestionFingerprint returns a content hash of a question's wire form.
func QuestionFingerprint(q Question) (string, error) {
	canonical, err := MarshalCanonical(q)
	if err != nil {
		return "", fmt.Errorf("fingerprint question %s: %w", q.ID, err)
	}
	return hashWithDomain(DomainQuestion, canonical), nil
}

// SnapshotHash returns the integrity hash stored next to a trash snapshot.
// The raw snapshot bytes are canonicalized first so re-indenting the stored
// JSON does not change the hash.
func SnapshotHash(snapshot []byte) (string, error) {
	canonical, err := MarshalCanonical(rawJSON(snapshot))
	if err != nil {
		return "", fmt.Errorf("hash snapshot: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// rawJSON lets MarshalCanonical accept already-encoded JSON.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	return r, nil
}

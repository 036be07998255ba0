package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity of block sequences.
// Version suffix enables future algorithm migration.
const (
	DomainQuery   = "traverql/query/v1"
	DomainLowered = "traverql/lowered/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of an unlowered
// block sequence. Stable across processes and restarts given the same
// blocks; used as the lowered-cache key.
func Fingerprint(blocks []Block) (string, error) {
	canonical, err := MarshalCanonical(blocks)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// LoweredFingerprint computes the content-addressed identity of a lowered
// block sequence. Distinct domain from Fingerprint so an unlowered and a
// lowered sequence can never collide.
func LoweredFingerprint(blocks []Block) (string, error) {
	canonical, err := MarshalCanonical(blocks)
	if err != nil {
		return "", fmt.Errorf("LoweredFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainLowered, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(blocks []Block) string {
	fp, err := Fingerprint(blocks)
	if err != nil {
		panic(err)
	}
	return fp
}

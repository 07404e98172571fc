package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/scenesync/internal/canon"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with earlier hashes.
const (
	DomainEntity = "scenesync/entity/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the content hash of a record. Two records hash equal
// iff they have the same kind, identifier and canonical payload.
func ContentHash(r Record) (string, error) {
	obj := canon.Object{
		"kind": canon.String(r.Kind),
		"id":   canon.String(r.ID),
		"data": r.Data,
	}
	canonical, err := canon.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEntity, canonical), nil
}

// EntityHash encodes e and returns its content hash.
func EntityHash(e Entity) (string, error) {
	r, err := Encode(e)
	if err != nil {
		return "", err
	}
	return ContentHash(r)
}

package ir

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainQuery  = "datastore/query/v1"
	DomainRecord = "datastore/post-import/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryHash computes a stable identifier for a normalized query document.
// Two documents with the same semantic content hash identically regardless
// of key order in the original request.
func QueryHash(doc any) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("QueryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// RecordID computes the content-addressed ID of a post-import record.
func RecordID(identifier, runID string, seq int64) (string, error) {
	obj := IRObject{
		"identifier": IRString(identifier),
		"run_id":     IRString(runID),
		"seq":        IRInt(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// TableName returns the physical table name backing a resource identifier.
// The md5 digest keeps names short and free of characters that need quoting.
func TableName(identifier string) string {
	sum := md5.Sum([]byte(identifier))
	return "datastore_" + hex.EncodeToString(sum[:])
}

package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainTick  = "nback/tick/v1"
	DomainClaim = "nback/claim/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator keeps domain and data unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TickID computes the content-addressed id of a tick record.
// Match flags are derived data and are not part of the identity.
func TickID(sessionID string, seq, index int64, sound, position int) (string, error) {
	obj := IRObject{
		"session_id": IRString(sessionID),
		"seq":        IRInt(seq),
		"index":      IRInt(index),
		"sound":      IRInt(sound),
		"position":   IRInt(position),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TickID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTick, canonical), nil
}

// ClaimID computes the content-addressed id of a claim record.
func ClaimID(sessionID string, seq, tick int64, channel, result string) (string, error) {
	obj := IRObject{
		"session_id": IRString(sessionID),
		"seq":        IRInt(seq),
		"tick":       IRInt(tick),
		"channel":    IRString(channel),
		"result":     IRString(result),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ClaimID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainClaim, canonical), nil
}

// MustTickID is like TickID but panics on error.
// Inputs are strings and integers only, so marshaling cannot fail.
func MustTickID(sessionID string, seq, index int64, sound, position int) string {
	id, err := TickID(sessionID, seq, index, sound, position)
	if err != nil {
		panic(err)
	}
	return id
}

// MustClaimID is like ClaimID but panics on error.
func MustClaimID(sessionID string, seq, tick int64, channel, result string) string {
	id, err := ClaimID(sessionID, seq, tick, channel, result)
	if err != nil {
		panic(err)
	}
	return id
}

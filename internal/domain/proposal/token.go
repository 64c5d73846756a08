package proposal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Tokens are tamper evidence, not authentication: the digest binds a token
// to the stored record it was issued for, so edits to either are detectable.
// Anyone holding the record can recompute the digest, so a token proves
// provenance only to parties who trust the store.

const (
	tokenPrefix    = "valid"
	tokenDigestLen = 16
)

// ComputeDigest returns the truncated hex digest binding a token to its
// proposal. The payload is canonical sorted-key JSON so the digest is stable
// across encoders.
func ComputeDigest(proposalID, toolName, timestamp string) string {
	payload := map[string]string{
		"proposal_id": proposalID,
		"tool_name":   toolName,
		"timestamp":   timestamp,
	}
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:tokenDigestLen]
}

// FormatToken renders a validation token: valid-<proposal_id>-<digest>.
func FormatToken(proposalID, digest string) string {
	return tokenPrefix + "-" + proposalID + "-" + digest
}

// ParseToken extracts the proposal id from a token, reporting whether the
// token has the required structural shape.
func ParseToken(token string) (string, bool) {
	parts := strings.Split(token, "-")
	if len(parts) < 3 || parts[0] != tokenPrefix {
		return "", false
	}
	return parts[1], true
}

package roadmap

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// AnalysisTokenPrefix marks tokens minted by Analyze.
const AnalysisTokenPrefix = "efficiency-"

const analysisDigestLen = 12

// AnalysisToken renders efficiency-<digest>-<YYYYMMDDHHMMSS>. The digest
// covers the ordered critical-path ids; the timestamp is the mint instant.
// It is a same-request correlation marker, not a verifiable credential:
// nothing stores it, so redemption checks shape only (see Service.Decide).
func AnalysisToken(criticalPath []string, at time.Time) string {
	sum := sha256.Sum256([]byte(strings.Join(criticalPath, ",")))
	return AnalysisTokenPrefix + hex.EncodeToString(sum[:])[:analysisDigestLen] + "-" + at.Format("20060102150405")
}

package analyzer

import (
	"crypto/sha256"
	"encoding/hex"

	"triage/internal/models"
)

// patternID computes the stable hash required by the data model
// invariant: deterministic for a given (kind, canonical_text), so
// re-running the analyzer on the same snapshot yields the same ids.
// sha256 truncated to 16 bytes (32 hex chars) of kind + 0x1f + text —
// content-addressed rather than random, since determinism is the point.
func patternID(kind models.Kind, canonicalText string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0x1f})
	h.Write([]byte(canonicalText))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

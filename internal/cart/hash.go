package cart

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRequest separates request-id hashes from any other hash in the system.
const DomainRequest = "cartsync/request/v1"

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RequestID computes the idempotency key of a mutation request.
//
// The id depends on the issuing session, what is asked (product, kind,
// quantity) and the per-product sequence. Re-sending the same logical
// request yields the same key; sequences restart with every session, so
// session keeps two sessions' requests apart.
func RequestID(session string, id ProductID, kind MutationKind, quantity int, seq int64) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"kind":       kind.String(),
		"product_id": id,
		"quantity":   quantity,
		"seq":        seq,
		"session":    session,
	})
	if err != nil {
		return "", fmt.Errorf("RequestID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRequest, canonical), nil
}

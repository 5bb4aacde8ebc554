package read

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// DeriveUUID deterministically derives a new read ID from a parent ID and
// a descriptor string. The result is SHA-256(parentID || desc) truncated
// to 16 bytes with the RFC-4122 version (4) and variant bits set, printed
// as a lowercase hex UUID. The same inputs always yield the same ID.
func DeriveUUID(parentID, desc string) string {
	h := sha256.New()
	h.Write([]byte(parentID))
	h.Write([]byte(desc))
	sum := h.Sum(nil)

	var id uuid.UUID
	copy(id[:], sum[:16])
	id[6] = (id[6] & 0x0F) | 0x40
	id[8] = (id[8] & 0x3F) | 0x80
	return id.String()
}

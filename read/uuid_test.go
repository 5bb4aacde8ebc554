package read

import (
	"testing"

	"github.com/google/uuid"
	"github.com/grailbio/testutil/expect"
)

func TestDeriveUUID(t *testing.T) {
	const parent = "11111111-1111-1111-1111-111111111111"
	// Derived IDs are stable across runs and across hosts.
	expect.EQ(t, DeriveUUID(parent, "500-527"), "23baecf0-2f6f-4ba3-86df-a13a2a01a87a")
	expect.EQ(t, DeriveUUID(parent, "0-500"), "51232324-ad11-453b-bc0c-f569eec64156")
	expect.EQ(t, DeriveUUID("a", "b"), "fb8e20fc-2e4c-4f24-8c60-c39bd652f3c1")

	// Distinct descriptors yield distinct IDs.
	expect.True(t, DeriveUUID(parent, "0-500") != DeriveUUID(parent, "0-501"))
}

func TestDeriveUUIDWellFormed(t *testing.T) {
	id, err := uuid.Parse(DeriveUUID("parent", "10-20"))
	expect.NoError(t, err)
	expect.EQ(t, int(id.Version()), 4)
	expect.EQ(t, id.Variant(), uuid.RFC4122)
}

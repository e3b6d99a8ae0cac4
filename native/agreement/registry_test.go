package agreement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pactd/storage"
)

func newTestRegistry(t *testing.T) (*KVRegistry, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	registry, err := NewKVRegistry(db)
	require.NoError(t, err)
	return registry, db
}

func testAgreement(id uint64) *Agreement {
	return &Agreement{
		ID:            id,
		Initiator:     newTestAddress(0x01),
		InitiatorLock: Lock{Amount: 100, CommittedAt: testEpoch},
		Expiration:    testEpoch + 1_000,
		Refundable:    true,
		CreatedAt:     testEpoch,
		Status:        StatusOpen,
	}
}

func TestAllocateIDIsMonotonic(t *testing.T) {
	registry, _ := newTestRegistry(t)
	prev := uint64(0)
	for i := 0; i < 10; i++ {
		id, err := registry.AllocateID()
		require.NoError(t, err)
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestAllocateIDSurvivesReopen(t *testing.T) {
	registry, db := newTestRegistry(t)
	id, err := registry.AllocateID()
	require.NoError(t, err)

	reopened, err := NewKVRegistry(db)
	require.NoError(t, err)
	next, err := reopened.AllocateID()
	require.NoError(t, err)
	require.Greater(t, next, id)
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	registry, _ := newTestRegistry(t)
	require.NoError(t, registry.Insert(1, testAgreement(1)))
	require.ErrorIs(t, registry.Insert(1, testAgreement(1)), ErrDuplicateID)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)
	_, err := registry.Get(99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceMissingReturnsNotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)
	require.ErrorIs(t, registry.Replace(99, testAgreement(99)), ErrNotFound)
}

func TestReplaceOverwritesRecord(t *testing.T) {
	registry, _ := newTestRegistry(t)
	require.NoError(t, registry.Insert(1, testAgreement(1)))

	updated := testAgreement(1)
	updated.Joined = true
	updated.Responder = newTestAddress(0x02)
	updated.ResponderLock = &Lock{Amount: 50, CommittedAt: testEpoch + 10}
	updated.Status = StatusMatched
	require.NoError(t, registry.Replace(1, updated))

	stored, err := registry.Get(1)
	require.NoError(t, err)
	require.Equal(t, StatusMatched, stored.Status)
	require.True(t, stored.Joined)
	require.NotNil(t, stored.ResponderLock)
	require.Equal(t, uint64(50), stored.ResponderLock.Amount)
	require.Equal(t, testEpoch+10, stored.ResponderLock.CommittedAt)
}

func TestRoundTripPreservesAllFields(t *testing.T) {
	registry, _ := newTestRegistry(t)
	original := testAgreement(7)
	original.Counterparty = newTestAddress(0x03)
	require.NoError(t, registry.Insert(7, original))

	stored, err := registry.Get(7)
	require.NoError(t, err)
	require.Equal(t, original, stored)
}

func TestInsertRejectsInvalidRecord(t *testing.T) {
	registry, _ := newTestRegistry(t)
	invalid := testAgreement(1)
	invalid.InitiatorLock.Amount = 0
	require.Error(t, registry.Insert(1, invalid))

	premature := testAgreement(2)
	premature.ResponderLock = &Lock{Amount: 10, CommittedAt: testEpoch}
	require.Error(t, registry.Insert(2, premature))
}

func TestTerminalAgreementsStayQueryable(t *testing.T) {
	registry, _ := newTestRegistry(t)
	require.NoError(t, registry.Insert(1, testAgreement(1)))
	finished := testAgreement(1)
	finished.Status = StatusCancelled
	require.NoError(t, registry.Replace(1, finished))

	stored, err := registry.Get(1)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, stored.Status)
}

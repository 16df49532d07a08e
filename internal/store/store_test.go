package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admuse/internal/persona"
)

func testPersonas(n int) []persona.Persona {
	out := make([]persona.Persona, n)
	for i := range out {
		out[i] = persona.Persona{
			ID:        string(rune('a' + i)),
			Title:     "Persona",
			Gender:    persona.GenderMen,
			AgeMin:    20,
			AgeMax:    30,
			Interests: [2]string{"one", "two"},
			Race:      persona.RaceWhite,
		}
	}
	return out
}

func TestReplaceAll_ResetsAndAdvancesEpoch(t *testing.T) {
	ctx := context.Background()
	s := NewPersonaStore(NewMemoryMirror())

	epoch1, err := s.ReplaceAll(ctx, testPersonas(5))
	require.NoError(t, err)
	epoch2, err := s.ReplaceAll(ctx, testPersonas(5))
	require.NoError(t, err)

	assert.Greater(t, epoch2, epoch1)
	for _, slot := range s.VisibleSlots() {
		assert.Equal(t, StatusPending, slot.Status)
	}
}

func TestUpdate_StaleEpochIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s := NewPersonaStore(NewMemoryMirror())

	oldEpoch, err := s.ReplaceAll(ctx, testPersonas(5))
	require.NoError(t, err)
	_, err = s.ReplaceAll(ctx, testPersonas(5))
	require.NoError(t, err)

	err = s.SetPortraitURL(ctx, oldEpoch, 0, "https://cdn.example.com/late.png")
	assert.ErrorIs(t, err, ErrStaleEpoch)

	slot, err := s.Slot(0)
	require.NoError(t, err)
	assert.Empty(t, slot.Persona.PortraitURL, "stale write must not land")
}

func TestWindow_OperationsOutsideWindowRejected(t *testing.T) {
	ctx := context.Background()
	s := NewPersonaStore(NewMemoryMirror())

	epoch, err := s.ReplaceAll(ctx, testPersonas(5))
	require.NoError(t, err)
	require.NoError(t, s.SetVisibleCount(ctx, 3))

	err = s.SetPortraitURL(ctx, epoch, 3, "https://cdn.example.com/x.png")
	assert.ErrorIs(t, err, ErrIndexOutOfWindow)
	_, err = s.Slot(4)
	assert.ErrorIs(t, err, ErrIndexOutOfWindow)

	assert.Len(t, s.VisibleSlots(), 3)
}

func TestSetVisibleCount_ClampsAndKeepsHiddenSlots(t *testing.T) {
	ctx := context.Background()
	s := NewPersonaStore(NewMemoryMirror())

	epoch, err := s.ReplaceAll(ctx, testPersonas(5))
	require.NoError(t, err)

	require.NoError(t, s.SetVisibleCount(ctx, 0))
	assert.Equal(t, MinVisibleCount, s.VisibleCount())
	require.NoError(t, s.SetVisibleCount(ctx, 99))
	assert.Equal(t, MaxVisibleCount, s.VisibleCount())

	// Shrinking then growing the window does not lose slot contents.
	require.NoError(t, s.SetPortraitURL(ctx, epoch, 4, "https://cdn.example.com/4.png"))
	require.NoError(t, s.SetVisibleCount(ctx, 2))
	require.NoError(t, s.SetVisibleCount(ctx, 5))

	slot, err := s.Slot(4)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/4.png", slot.Persona.PortraitURL)
}

func TestClearSlot_EmptiesWithoutCompacting(t *testing.T) {
	ctx := context.Background()
	s := NewPersonaStore(NewMemoryMirror())

	_, err := s.ReplaceAll(ctx, testPersonas(5))
	require.NoError(t, err)
	require.NoError(t, s.ClearSlot(ctx, 2))

	slot, err := s.Slot(2)
	require.NoError(t, err)
	assert.Nil(t, slot.Persona)
	assert.Equal(t, StatusEmpty, slot.Status)

	// Neighbors are untouched.
	slot3, err := s.Slot(3)
	require.NoError(t, err)
	assert.NotNil(t, slot3.Persona)
}

func TestMarkStatus_TracksRetriesAndError(t *testing.T) {
	ctx := context.Background()
	s := NewPersonaStore(NewMemoryMirror())

	epoch, err := s.ReplaceAll(ctx, testPersonas(2))
	require.NoError(t, err)

	require.NoError(t, s.MarkStatus(ctx, epoch, 0, StatusExhausted, errors.New("collaborator down")))

	slot, err := s.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, slot.Status)
	assert.Equal(t, "collaborator down", slot.LastError)
	assert.Equal(t, 1, slot.RetryCount)
}

func TestWriteThrough_EveryMutationPersists(t *testing.T) {
	ctx := context.Background()
	mirror := NewMemoryMirror()
	s := NewPersonaStore(mirror)

	epoch, err := s.ReplaceAll(ctx, testPersonas(3))
	require.NoError(t, err)
	require.NoError(t, s.SetPortraitURL(ctx, epoch, 1, "https://cdn.example.com/1.png"))

	saved := mirror.Saved()
	require.NotNil(t, saved)
	assert.Equal(t, epoch, saved.Epoch)
	assert.Equal(t, "https://cdn.example.com/1.png", saved.Slots[1].Persona.PortraitURL)
}

func TestRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mirror := NewMemoryMirror()

	s1 := NewPersonaStore(mirror)
	epoch, err := s1.ReplaceAll(ctx, testPersonas(4))
	require.NoError(t, err)
	require.NoError(t, s1.SetVisibleCount(ctx, 3))
	require.NoError(t, s1.SetPortraitURL(ctx, epoch, 0, "https://cdn.example.com/0.png"))

	s2 := NewPersonaStore(mirror)
	require.NoError(t, s2.Restore(ctx))

	assert.Equal(t, 3, s2.VisibleCount())
	assert.Equal(t, epoch, s2.Epoch())
	slot, err := s2.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/0.png", slot.Persona.PortraitURL)
}

func TestBrief_PersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	mirror := NewMemoryMirror()

	s1 := NewPersonaStore(mirror)
	_, err := s1.ReplaceAll(ctx, testPersonas(2))
	require.NoError(t, err)
	brief := Brief{
		Offering:            "trail running shoes",
		Country:             "NO",
		OrganizationContext: "outdoor retailer",
	}
	require.NoError(t, s1.SetBrief(ctx, brief))

	s2 := NewPersonaStore(mirror)
	require.NoError(t, s2.Restore(ctx))
	assert.Equal(t, brief, s2.Brief())
}

func TestRestore_EmptyMirrorStartsFresh(t *testing.T) {
	s := NewPersonaStore(NewMemoryMirror())
	require.NoError(t, s.Restore(context.Background()))
	assert.Equal(t, MaxVisibleCount, s.VisibleCount())
	assert.Empty(t, s.VisibleSlots())
}

func TestSlotCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewPersonaStore(NewMemoryMirror())

	_, err := s.ReplaceAll(ctx, testPersonas(2))
	require.NoError(t, err)

	slot, err := s.Slot(0)
	require.NoError(t, err)
	slot.Persona.Title = "mutated"

	again, err := s.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, "Persona", again.Persona.Title)
}

func TestSQLiteMirror_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "admuse.db")

	m, err := NewSQLiteMirror(path, "default")
	require.NoError(t, err)
	defer m.Close()

	snap := Snapshot{
		Slots:        []Slot{{Status: StatusPending}},
		VisibleCount: 4,
		Epoch:        7,
	}
	require.NoError(t, m.Save(ctx, snap))

	loaded, err := m.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(7), loaded.Epoch)
	assert.Equal(t, 4, loaded.VisibleCount)
	require.Len(t, loaded.Slots, 1)
	assert.False(t, loaded.SavedAt.IsZero())
}

func TestSQLiteMirror_MissingRowIsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admuse.db")
	m, err := NewSQLiteMirror(path, "default")
	require.NoError(t, err)
	defer m.Close()

	snap, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSQLiteMirror_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "admuse.db")

	a, err := NewSQLiteMirror(path, "campaign-a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteMirror(path, "campaign-b")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Save(ctx, Snapshot{Epoch: 1}))

	snap, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSQLiteMirror_CorruptPayloadIsAbsence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "admuse.db")

	m, err := NewSQLiteMirror(path, "default")
	require.NoError(t, err)
	defer m.Close()

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO persona_snapshots (namespace, payload, epoch) VALUES (?, ?, 0)`,
		"default", "{not json")
	require.NoError(t, err)

	snap, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

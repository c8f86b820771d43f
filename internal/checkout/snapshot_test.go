package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("test-secret")
	require.NoError(t, err)

	sealed, err := s.Seal(readyDraft(), "ref-1")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "c0ntr4")

	out, err := s.Open(sealed, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, readyDraft().Contractor, out.Contractor)
}

func TestSealerBindsReference(t *testing.T) {
	s, err := NewSealer("test-secret")
	require.NoError(t, err)
	sealed, err := s.Seal(readyDraft(), "ref-1")
	require.NoError(t, err)

	_, err = s.Open(sealed, "ref-2")
	assert.ErrorIs(t, err, ErrSnapshotInvalid)

	_, err = s.Open(sealed[:4], "ref-1")
	assert.ErrorIs(t, err, ErrSnapshotInvalid)
}

func TestSealerKeysDerivedFromSecret(t *testing.T) {
	a, err := NewSealer("one")
	require.NoError(t, err)
	b, err := NewSealer("one")
	require.NoError(t, err)
	c, err := NewSealer("two")
	require.NoError(t, err)

	sealed, err := a.Seal(readyDraft(), "ref")
	require.NoError(t, err)
	_, err = b.Open(sealed, "ref")
	assert.NoError(t, err)
	_, err = c.Open(sealed, "ref")
	assert.Error(t, err)
}

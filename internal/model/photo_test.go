package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentSlot_NothingIsEmpty(t *testing.T) {
	p := PresentSlot(nil, "")
	assert.True(t, p.IsEmpty())
	assert.Equal(t, EmptySlot(), p)
}

func TestPresentSlot_CopiesBytes(t *testing.T) {
	data := []byte("img")
	p := PresentSlot(data, "")
	data[0] = 'X'

	assert.Equal(t, []byte("img"), p.Bytes())
	assert.True(t, p.HasUpload())
}

func TestTombstonedSlot_HasNoContent(t *testing.T) {
	p := TombstonedSlot()
	assert.True(t, p.IsTombstoned())
	assert.Nil(t, p.Bytes())
	assert.Empty(t, p.URL())
	assert.False(t, p.HasUpload())
}

func TestPhotoSlot_Describe(t *testing.T) {
	tests := []struct {
		slot PhotoSlot
		want string
	}{
		{EmptySlot(), "empty"},
		{TombstonedSlot(), "tombstoned"},
		{PresentSlot([]byte("b"), ""), "bytes"},
		{PresentSlot(nil, "https://x"), "url"},
		{PresentSlot([]byte("b"), "https://x"), "bytes+url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.slot.Describe())
	}
}

func TestSlot_NamesAndFields(t *testing.T) {
	assert.Equal(t, "front", SlotFront.Name())
	assert.Equal(t, "photo_back", SlotBack.Field())
	assert.Equal(t, "side", SlotSide.String())

	s, err := ParseSlot("back")
	require.NoError(t, err)
	assert.Equal(t, SlotBack, s)

	_, err = ParseSlot("top")
	assert.Error(t, err)
}

func TestParsePhotoState(t *testing.T) {
	for _, st := range []PhotoState{PhotoEmpty, PhotoPresent, PhotoTombstoned} {
		got, err := ParsePhotoState(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
	_, err := ParsePhotoState("gone")
	assert.Error(t, err)
}

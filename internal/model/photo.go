package model

import (
	"bytes"
	"fmt"
)

// Slot identifies one of the three progress photo positions.
type Slot int

const (
	SlotFront Slot = iota
	SlotBack
	SlotSide
)

// Slots lists every slot in the order the engine processes them.
var Slots = [...]Slot{SlotFront, SlotBack, SlotSide}

var slotNames = [...]string{"front", "back", "side"}

// Name returns the slot name used by the delete-photo endpoint.
func (s Slot) Name() string {
	if s < SlotFront || s > SlotSide {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// Field returns the multipart form field carrying this slot's upload.
func (s Slot) Field() string {
	return "photo_" + s.Name()
}

func (s Slot) String() string {
	return s.Name()
}

// ParseSlot parses "front", "back" or "side".
func ParseSlot(name string) (Slot, error) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown photo slot %q", name)
}

// PhotoState tags the content of a PhotoSlot.
type PhotoState uint8

const (
	PhotoEmpty PhotoState = iota
	PhotoPresent
	PhotoTombstoned
)

func (s PhotoState) String() string {
	switch s {
	case PhotoEmpty:
		return "empty"
	case PhotoPresent:
		return "present"
	case PhotoTombstoned:
		return "tombstoned"
	default:
		return fmt.Sprintf("PhotoState(%d)", uint8(s))
	}
}

// ParsePhotoState is the inverse of PhotoState.String.
func ParsePhotoState(s string) (PhotoState, error) {
	switch s {
	case "empty", "":
		return PhotoEmpty, nil
	case "present":
		return PhotoPresent, nil
	case "tombstoned":
		return PhotoTombstoned, nil
	default:
		return 0, fmt.Errorf("unknown photo state %q", s)
	}
}

// PhotoSlot is the value held in one photo position of a record.
//
// Fields are unexported so that every value is built by EmptySlot,
// PresentSlot or TombstonedSlot and the tombstone never carries content.
type PhotoSlot struct {
	state PhotoState
	bytes []byte
	url   string
}

// EmptySlot returns a slot with no content.
func EmptySlot() PhotoSlot {
	return PhotoSlot{}
}

// PresentSlot returns a slot holding local bytes, a remote URL, or both.
// With neither it returns an empty slot. The bytes are copied.
func PresentSlot(data []byte, url string) PhotoSlot {
	if len(data) == 0 && url == "" {
		return PhotoSlot{}
	}
	var owned []byte
	if len(data) > 0 {
		owned = bytes.Clone(data)
	}
	return PhotoSlot{state: PhotoPresent, bytes: owned, url: url}
}

// TombstonedSlot returns a slot whose remote photo must be deleted.
func TombstonedSlot() PhotoSlot {
	return PhotoSlot{state: PhotoTombstoned}
}

// State reports the slot's tag.
func (p PhotoSlot) State() PhotoState { return p.state }

// Bytes returns the locally held image, or nil.
func (p PhotoSlot) Bytes() []byte { return p.bytes }

// URL returns the remote image location, or "".
func (p PhotoSlot) URL() string { return p.url }

// IsEmpty reports whether the slot holds nothing.
func (p PhotoSlot) IsEmpty() bool { return p.state == PhotoEmpty }

// IsTombstoned reports whether a remote deletion is pending.
func (p PhotoSlot) IsTombstoned() bool { return p.state == PhotoTombstoned }

// HasUpload reports whether the slot holds bytes that still need uploading.
func (p PhotoSlot) HasUpload() bool {
	return p.state == PhotoPresent && len(p.bytes) > 0
}

// Describe renders the slot compactly for traces and CLI output:
// "empty", "tombstoned", "bytes", "url" or "bytes+url".
func (p PhotoSlot) Describe() string {
	switch p.state {
	case PhotoTombstoned:
		return "tombstoned"
	case PhotoPresent:
		switch {
		case len(p.bytes) > 0 && p.url != "":
			return "bytes+url"
		case len(p.bytes) > 0:
			return "bytes"
		default:
			return "url"
		}
	default:
		return "empty"
	}
}

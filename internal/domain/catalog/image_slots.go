package catalog

import (
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"

	"github.com/erp/console/internal/domain/shared"
)

const (
	// SlotCount is the number of image positions on a product
	SlotCount = 7
	// MaxImageSize is the per-file upload limit
	MaxImageSize = 10 * 1024 * 1024
	// MaxTotalImageSize is the limit for all files in one save
	MaxTotalImageSize = 100 * 1024 * 1024
)

// Attachment is a local file waiting to be uploaded
type Attachment struct {
	Name        string
	Size        int64
	ContentType string
	// Preview is a local reference shown in place of the remote image
	Preview string
	Open    func() (io.ReadCloser, error)
}

// Slot holds at most one of an existing remote reference or a new attachment
type Slot struct {
	Existing string
	New      *Attachment
}

// Empty reports whether the slot holds nothing
func (s Slot) Empty() bool { return s.Existing == "" && s.New == nil }

// ImageSlots is the pending image set of a product draft.
//
// Mutations never write through shared backing arrays, so a copied
// ImageSlots value is independent of the original.
type ImageSlots struct {
	slots    [SlotCount]Slot
	existing []string
	deleted  []string
}

// NewImageSlots lays out refs in slot order. References past the last slot
// stay in the existing list but are not addressable.
func NewImageSlots(refs []string) ImageSlots {
	var s ImageSlots
	for i, ref := range refs {
		if i < SlotCount {
			s.slots[i].Existing = ref
		}
	}
	s.existing = slices.Clone(refs)
	return s
}

// Slot returns slot i
func (s ImageSlots) Slot(i int) Slot {
	if i < 0 || i >= SlotCount {
		return Slot{}
	}
	return s.slots[i]
}

// Replace attaches a to slot i. An existing reference in the slot moves to
// the deletion set.
func (s *ImageSlots) Replace(i int, a Attachment) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if a.Open == nil {
		return shared.NewValidationError("images", "attachment has no content")
	}
	if a.Preview == "" {
		a.Preview = "preview:" + uuid.NewString()
	}

	s.release(i)
	s.slots[i].New = &a
	return nil
}

// Remove clears slot i
func (s *ImageSlots) Remove(i int) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	s.release(i)
	s.slots[i].New = nil
	return nil
}

func (s *ImageSlots) release(i int) {
	ref := s.slots[i].Existing
	if ref == "" {
		return
	}
	s.slots[i].Existing = ""

	// Only one occurrence goes: another slot may still show the same reference
	if idx := slices.Index(s.existing, ref); idx >= 0 {
		s.existing = slices.Delete(slices.Clone(s.existing), idx, idx+1)
	}

	if !slices.Contains(s.deleted, ref) {
		s.deleted = append(slices.Clip(s.deleted), ref)
	}
}

// Existing returns the remote references still kept
func (s ImageSlots) Existing() []string {
	return slices.Clone(s.existing)
}

// ToDelete returns the remote references marked for removal
func (s ImageSlots) ToDelete() []string {
	return slices.Clone(s.deleted)
}

// Attachments returns the new files in slot order
func (s ImageSlots) Attachments() []Attachment {
	var out []Attachment
	for _, slot := range s.slots {
		if slot.New != nil {
			out = append(out, *slot.New)
		}
	}
	return out
}

// Dirty reports whether any slot changed since construction
func (s ImageSlots) Dirty() bool {
	if len(s.deleted) > 0 {
		return true
	}
	for _, slot := range s.slots {
		if slot.New != nil {
			return true
		}
	}
	return false
}

func checkIndex(i int) error {
	if i < 0 || i >= SlotCount {
		return shared.NewValidationError("images", fmt.Sprintf("slot %d out of range 0..%d", i, SlotCount-1))
	}
	return nil
}

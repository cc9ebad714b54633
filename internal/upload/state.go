package upload

import "sync"

// LocalState is the caller-side selection an upload was started from.
// A failed upload resets all three parts.
type LocalState interface {
	ClearPreview()
	DiscardSelection()
	ResetPicker()
}

// Selection is a LocalState for a single pending asset. The picker
// generation increments on every reset so a picker bound to it re-renders
// empty and can select the same file again.
type Selection struct {
	mu         sync.Mutex
	asset      *Asset
	preview    string
	generation int
}

// Select stores asset and its preview as the pending selection.
func (s *Selection) Select(asset Asset, preview string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asset = &asset
	s.preview = preview
}

// Selected returns the pending asset, if any.
func (s *Selection) Selected() (Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asset == nil {
		return Asset{}, false
	}
	return *s.asset, true
}

func (s *Selection) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

func (s *Selection) PickerGeneration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Selection) ClearPreview() {
	s.mu.Lock()
	s.preview = ""
	s.mu.Unlock()
}

func (s *Selection) DiscardSelection() {
	s.mu.Lock()
	s.asset = nil
	s.mu.Unlock()
}

func (s *Selection) ResetPicker() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// Empty reports whether nothing is selected or previewed.
func (s *Selection) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset == nil && s.preview == ""
}

func rollback(state LocalState) {
	if state == nil {
		return
	}
	state.ClearPreview()
	state.DiscardSelection()
	state.ResetPicker()
}

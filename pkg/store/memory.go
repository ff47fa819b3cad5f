package store

import "github.com/goliatone/go-formbuilder/pkg/model"

// MemoryStore is an in-process Store for tests and ephemeral sessions.
type MemoryStore struct {
	forms   []model.SavedForm
	saveErr error
}

// NewMemory constructs an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// FailSavesWith makes every subsequent Save return err. Used by tests to
// exercise save-failure atomicity.
func (s *MemoryStore) FailSavesWith(err error) {
	s.saveErr = err
}

func (s *MemoryStore) Load() ([]model.SavedForm, error) {
	out := make([]model.SavedForm, len(s.forms))
	for i, form := range s.forms {
		out[i] = form.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Save(forms []model.SavedForm) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	out := make([]model.SavedForm, len(forms))
	for i, form := range forms {
		out[i] = form.Clone()
	}
	s.forms = out
	return nil
}

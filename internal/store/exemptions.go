package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// exemptionFile is the on-disk layout of the exemption list.
type exemptionFile struct {
	ExemptedUsers []string `json:"exempted_users"`
}

// FileExemptions stores the exemption list in a flat JSON file with
// read-modify-write semantics. The mutex serializes writers within this
// process; concurrent external writers are last-writer-wins.
type FileExemptions struct {
	path string
	mu   sync.Mutex
}

// NewFileExemptions returns an exemption store backed by the given path.
// The file is created lazily on first Add.
func NewFileExemptions(path string) *FileExemptions {
	return &FileExemptions{path: path}
}

func (f *FileExemptions) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileExemptions) Add(userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.read()
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u == userID {
			return false, nil
		}
	}
	return true, f.write(append(users, userID))
}

func (f *FileExemptions) Remove(userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users, err := f.read()
	if err != nil {
		return false, err
	}
	kept := users[:0]
	found := false
	for _, u := range users {
		if u == userID {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return false, nil
	}
	return true, f.write(kept)
}

func (f *FileExemptions) read() ([]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc exemptionFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.ExemptedUsers, nil
}

func (f *FileExemptions) write(users []string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	if users == nil {
		users = []string{}
	}
	data, err := json.MarshalIndent(exemptionFile{ExemptedUsers: users}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

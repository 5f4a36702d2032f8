package browser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// StateFile is a Context backed by a Playwright-compatible storageState JSON
// document. Artifacts accumulate in memory until Save is called.
type StateFile struct {
	*Memory
	path string
}

var (
	_ Context = (*StateFile)(nil)
	_ Clearer = (*StateFile)(nil)
)

type storageState struct {
	Cookies []stateCookie `json:"cookies"`
	Origins []stateOrigin `json:"origins"`
}

type stateCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

type stateOrigin struct {
	Origin       string        `json:"origin"`
	LocalStorage []StorageItem `json:"localStorage"`
}

// NewStateFile returns an empty StateFile that will be written to path.
func NewStateFile(path string) *StateFile {
	return &StateFile{Memory: NewMemory(), path: path}
}

// LoadStateFile reads an existing storageState document.
func LoadStateFile(path string) (*StateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "[LoadStateFile] reading %s", path)
	}
	var state storageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(err, "[LoadStateFile] decoding %s", path)
	}

	sf := NewStateFile(path)
	for _, c := range state.Cookies {
		cookie := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: parseSameSite(c.SameSite),
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		if err := sf.AddCookies(cookie); err != nil {
			return nil, errors.Wrap(err, "[LoadStateFile] AddCookies")
		}
	}
	for _, o := range state.Origins {
		if err := sf.SetLocalStorage(o.Origin, o.LocalStorage...); err != nil {
			return nil, errors.Wrap(err, "[LoadStateFile] SetLocalStorage")
		}
	}
	return sf, nil
}

// Path returns the file the state is saved to.
func (s *StateFile) Path() string {
	return s.path
}

// LookupItem returns the first local storage value stored under key on any origin.
func (s *StateFile) LookupItem(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, origin := range s.sortedOrigins() {
		if v, ok := s.storage[origin][key]; ok {
			return v, true
		}
	}
	return "", false
}

// Save writes the document atomically with owner-only permissions: it holds
// live bearer tokens.
func (s *StateFile) Save() error {
	data, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "[StateFile.Save] json.Marshal")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "[StateFile.Save] creating %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".storage-state-*")
	if err != nil {
		return errors.Wrap(err, "[StateFile.Save] CreateTemp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[StateFile.Save] write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[StateFile.Save] chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[StateFile.Save] close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "[StateFile.Save] rename")
}

func (s *StateFile) snapshot() storageState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := storageState{
		Cookies: make([]stateCookie, 0, len(s.cookies)),
		Origins: make([]stateOrigin, 0, len(s.storage)),
	}
	for _, c := range s.cookies {
		expires := float64(-1)
		if !c.Expires.IsZero() {
			expires = float64(c.Expires.Unix())
		}
		state.Cookies = append(state.Cookies, stateCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: sameSiteName(c.SameSite),
		})
	}
	for _, origin := range s.sortedOrigins() {
		items := s.storage[origin]
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := stateOrigin{Origin: origin, LocalStorage: make([]StorageItem, 0, len(keys))}
		for _, k := range keys {
			o.LocalStorage = append(o.LocalStorage, StorageItem{Name: k, Value: items[k]})
		}
		state.Origins = append(state.Origins, o)
	}
	return state
}

// sortedOrigins must be called with s.mu held.
func (s *StateFile) sortedOrigins() []string {
	origins := make([]string, 0, len(s.storage))
	for origin := range s.storage {
		origins = append(origins, origin)
	}
	sort.Strings(origins)
	return origins
}

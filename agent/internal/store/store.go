package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrCorrupt is wrapped by Load when the state file exists but does not hold
// a JSON object of string values.
var ErrCorrupt = errors.New("state file is corrupt")

// Store reads and writes the fingerprint document at a fixed path.
type Store struct {
	path string
}

// New returns a Store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted fingerprints. A missing file is the first run and
// yields an empty mapping.
func (s *Store) Load() (*Fingerprints, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewFingerprints(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	fp, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w: %v", s.path, ErrCorrupt, err)
	}
	return fp, nil
}

// Save overwrites the persisted document with fp. The file is replaced
// atomically so a crash mid-write leaves the previous state intact.
func (s *Store) Save(fp *Fingerprints) error {
	data, err := encode(fp)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}
	return nil
}

// decode parses a flat JSON object, keeping the key order of the document.
func decode(data []byte) (*Fingerprints, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	fp := NewFingerprints()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", tok)
		}
		var hash string
		if err := dec.Decode(&hash); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		fp.Set(key, hash)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	return fp, nil
}

// encode renders fp as a 2-space indented JSON object in key order.
// Non-ASCII characters and '&' in URLs are written verbatim.
func encode(fp *Fingerprints) ([]byte, error) {
	if fp.Len() == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range fp.keys {
		key, err := marshalString(k)
		if err != nil {
			return nil, err
		}
		val, err := marshalString(fp.hashes[k])
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		if i < len(fp.keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

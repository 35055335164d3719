package store

// keySeparator joins the source name and URL in a record key.
const keySeparator = "::"

// Key returns the record key for a page of a source.
func Key(source, url string) string {
	return source + keySeparator + url
}

// Fingerprints maps record keys to content hashes, remembering insertion
// order. The zero value is not usable; call NewFingerprints.
type Fingerprints struct {
	keys   []string
	hashes map[string]string
}

// NewFingerprints returns an empty mapping.
func NewFingerprints() *Fingerprints {
	return &Fingerprints{hashes: make(map[string]string)}
}

// Get returns the hash stored under key and whether it was present.
func (f *Fingerprints) Get(key string) (string, bool) {
	h, ok := f.hashes[key]
	return h, ok
}

// Set stores hash under key. A new key is appended after existing ones; an
// existing key keeps its position.
func (f *Fingerprints) Set(key, hash string) {
	if _, ok := f.hashes[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.hashes[key] = hash
}

// Len returns the number of records.
func (f *Fingerprints) Len() int { return len(f.keys) }

// Keys returns the record keys in order. The slice is a copy.
func (f *Fingerprints) Keys() []string {
	return append([]string(nil), f.keys...)
}

// Clone returns an independent copy.
func (f *Fingerprints) Clone() *Fingerprints {
	out := &Fingerprints{
		keys:   append([]string(nil), f.keys...),
		hashes: make(map[string]string, len(f.hashes)),
	}
	for k, v := range f.hashes {
		out.hashes[k] = v
	}
	return out
}

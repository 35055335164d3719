package types

// Source is one monitored institution and the pages published under it.
// URLs are checked in the order listed.
type Source struct {
	// Name is the label shown in notifications, e.g. "Roma Mobilità".
	Name string `yaml:"name"`

	// URLs is the ordered list of pages to fetch for this source.
	URLs []string `yaml:"urls"`
}

// ChangeEvent flags a (source, url) pair whose relevant content changed since
// the last useful run. It exists only for the duration of one run.
type ChangeEvent struct {
	Source       string
	URL          string
	PreviousHash string
	CurrentHash  string
}

// Package relevance decides whether normalized page text is about the
// monitored topic by requiring a hit from two keyword categories.
package relevance

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// category is one keyword list compiled into a single automaton.
type category struct {
	keywords []string
	matcher  *ahocorasick.Matcher
}

func newCategory(keywords []string) category {
	var c category
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		c.keywords = append(c.keywords, kw)
	}
	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// hits returns the keywords found in text, in keyword-list order.
func (c category) hits(text string) []string {
	if c.matcher == nil {
		return nil
	}
	idx := c.matcher.Match([]byte(text))
	if len(idx) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(idx))
	for _, i := range idx {
		seen[i] = true
	}
	out := make([]string, 0, len(seen))
	for i, kw := range c.keywords {
		if seen[i] {
			out = append(out, kw)
		}
	}
	return out
}

// Filter matches text against a topic list and a domain list. Matching is
// plain substring containment: "ibrid" matches inside "ibridi" and inside
// unrelated words alike.
//
// The underlying matchers keep per-call scratch state, so a Filter must not
// be shared between goroutines.
type Filter struct {
	topic  category
	domain category
}

// New compiles the two keyword categories. Keywords are trimmed and
// lowercased; empty entries are dropped. A category left empty never matches.
func New(topic, domain []string) *Filter {
	return &Filter{
		topic:  newCategory(topic),
		domain: newCategory(domain),
	}
}

// Match reports which keywords of each category occur in text.
type Match struct {
	Topic  []string
	Domain []string
}

// Relevant is true when both categories matched.
func (m Match) Relevant() bool {
	return len(m.Topic) > 0 && len(m.Domain) > 0
}

// Match returns the keyword hits of both categories. text is expected to be
// lowercased already (see scraper.Normalize).
func (f *Filter) Match(text string) Match {
	return Match{
		Topic:  f.topic.hits(text),
		Domain: f.domain.hits(text),
	}
}

// IsRelevant reports whether text contains at least one topic keyword and at
// least one domain keyword.
func (f *Filter) IsRelevant(text string) bool {
	return f.Match(text).Relevant()
}

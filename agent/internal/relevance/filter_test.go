package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	topic  = []string{"ibrid", "hybrid", "mild", "mhev"}
	domain = []string{"strisce blu", "sosta", "parchegg", "tariff", "gratuit", "esenz", "agevol"}
)

func TestIsRelevant_Conjunction(t *testing.T) {
	f := New(topic, domain)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"both categories", "sosta gratuita per veicoli ibridi", true},
		{"multiword domain keyword", "strisce blu: novità per le mhev", true},
		{"topic only", "incentivi per auto ibride e mild hybrid", false},
		{"domain only", "nuove tariffe della sosta su strisce blu", false},
		{"neither", "orari degli uffici anagrafici", false},
		{"empty", "", false},
		{"substring inside unrelated word", "tariffario per chi usa il parcheggio mildly", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.IsRelevant(tc.text))
		})
	}
}

func TestIsRelevant_Monotonic(t *testing.T) {
	f := New(topic, domain)
	text := "esenzione sosta ibridi"
	assert.True(t, f.IsRelevant(text))

	for _, extra := range []string{" hybrid", " strisce blu", " tariffe agevolate", " orari", " ibrid ibrid ibrid"} {
		text += extra
		assert.True(t, f.IsRelevant(text), "adding %q flipped relevance", extra)
	}
}

func TestNew_NormalizesKeywords(t *testing.T) {
	f := New([]string{"  IBRID ", ""}, []string{"Sosta"})
	assert.True(t, f.IsRelevant("sosta ibridi"))
}

func TestNew_EmptyCategoryNeverMatches(t *testing.T) {
	assert.False(t, New(nil, domain).IsRelevant("sosta ibrid"))
	assert.False(t, New(topic, []string{"", "  "}).IsRelevant("sosta ibrid"))
}

func TestMatch_ReportsHitsInKeywordOrder(t *testing.T) {
	f := New(topic, domain)
	m := f.Match("le mild hybrid pagano la sosta? esenzione per gli ibridi")

	assert.Equal(t, []string{"ibrid", "hybrid", "mild"}, m.Topic)
	assert.Equal(t, []string{"sosta", "esenz"}, m.Domain)
	assert.True(t, m.Relevant())
}

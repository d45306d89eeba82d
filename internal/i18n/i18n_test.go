package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_MatchesLanguage(t *testing.T) {
	tests := []struct {
		lang     string
		expected string
	}{
		{"hu", "hu"},
		{"hu-HU", "hu"},
		{"en-US", "en"},
		{"en", "en"},
		{"de-DE", "en"},
		{"", "en"},
		{"not a tag!", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.lang).Language().String())
		})
	}
}

func TestLookup(t *testing.T) {
	hu := New("hu")
	en := New("en")

	assert.Equal(t, "Kommunikációs hiba!", hu.Lookup(ErrorGenericComm))
	assert.Equal(t, "Communication error!", en.Lookup(ErrorGenericComm))
	assert.Equal(t, "no_such_key", en.Lookup("no_such_key"))
}

func TestTablesHaveSameKeys(t *testing.T) {
	for key := range tables["en"] {
		_, ok := tables["hu"][key]
		assert.True(t, ok, "hu is missing %s", key)
	}
	assert.Len(t, tables["hu"], len(tables["en"]))
}

func TestFormat(t *testing.T) {
	en := New("en")

	assert.Equal(t, "Loading departures for Blaha Lujza tér…",
		Format(en, MsgDepartureLoadingFormat, map[string]string{"stop": "Blaha Lujza tér"}))
	assert.Equal(t, "Loading stops for 7 > Újpalota…",
		Format(en, MsgTripLoadingFormat, map[string]string{"trip": "7 > Újpalota"}))
	assert.Equal(t, "Tools", Format(en, TitleTools, nil))
}

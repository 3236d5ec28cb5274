package triage

import (
	"strings"
	"unicode/utf8"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// A requested topic is only corrected to a known key when it is at least
// minFuzzyTopicLen runes long and within maxTopicDistance edits of exactly
// one key. Short slugs like "couch" or "fear" are too close to unrelated
// topics to correct safely.
const (
	maxTopicDistance = 1
	minFuzzyTopicLen = 6
)

var topicDistance = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Topic is a resolved health-info topic.
type Topic struct {
	Key   string
	Title string
	Known bool
}

// ResolveTopic maps a requested topic slug onto a known topic key, tolerating
// a single typo in longer slugs, and returns its localized title. Unknown
// slugs get a title-cased version of the slug with dashes turned into spaces.
func (t *Tables) ResolveTopic(slug, lang string) Topic {
	slug = strings.ToLower(strings.TrimSpace(slug))

	if title, ok := t.TopicTitle(slug, lang); ok {
		return Topic{Key: slug, Title: title, Known: true}
	}

	if utf8.RuneCountInString(slug) >= minFuzzyTopicLen {
		var matches []string
		for _, key := range t.Topics() {
			if levenshtein.DistanceForStrings([]rune(slug), []rune(key), topicDistance) <= maxTopicDistance {
				matches = append(matches, key)
			}
		}
		if len(matches) == 1 {
			title, _ := t.TopicTitle(matches[0], lang)
			return Topic{Key: matches[0], Title: title, Known: true}
		}
	}

	title := cases.Title(language.Und).String(strings.ReplaceAll(slug, "-", " "))
	return Topic{Key: slug, Title: title}
}

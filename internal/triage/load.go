package triage

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"aarogya/internal/locale"
)

// tablesFile is the on-disk shape of a tables overlay.
type tablesFile struct {
	Keywords        map[string][]string          `toml:"keywords"`
	Severity        severityFile                 `toml:"severity"`
	Prompts         map[string]string            `toml:"prompts"`
	Instructions    map[string]string            `toml:"instructions"`
	Directive       string                       `toml:"directive"`
	Recommendations map[string][]string          `toml:"recommendations"`
	Disclaimers     map[string]string            `toml:"disclaimers"`
	TopicTitles     map[string]map[string]string `toml:"topic_titles"`
	TopicPrompt     string                       `toml:"topic_prompt"`
}

type severityFile struct {
	High   []string `toml:"high"`
	Medium []string `toml:"medium"`
}

// LoadTables returns DefaultTables overlaid with the TOML file at path.
// Entries present in the file replace the matching default entry. An empty
// path returns the defaults.
func LoadTables(path string) (*Tables, error) {
	t := DefaultTables()
	if path == "" {
		return t, nil
	}

	var f tablesFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode triage tables %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("triage tables %s: unknown key %q", path, undecoded[0].String())
	}

	if err := t.overlay(&f); err != nil {
		return nil, fmt.Errorf("triage tables %s: %w", path, err)
	}
	return t, nil
}

func (t *Tables) overlay(f *tablesFile) error {
	for name, words := range f.Keywords {
		c, ok := ParseCategory(name)
		if !ok || c == CategoryGeneral {
			return fmt.Errorf("unknown category %q in keywords", name)
		}
		t.keywords[c] = foldAll(words)
	}
	if len(f.Severity.High) > 0 {
		t.highSeverity = foldAll(f.Severity.High)
	}
	if len(f.Severity.Medium) > 0 {
		t.mediumSeverity = foldAll(f.Severity.Medium)
	}
	for name, prompt := range f.Prompts {
		c, ok := ParseCategory(name)
		if !ok {
			return fmt.Errorf("unknown category %q in prompts", name)
		}
		t.prompts[c] = prompt
	}
	for lang, s := range f.Instructions {
		if !locale.IsSupported(lang) {
			return fmt.Errorf("unsupported language %q in instructions", lang)
		}
		t.instructions[locale.Normalize(lang)] = s
	}
	if f.Directive != "" {
		t.directive = f.Directive
	}
	for lang, recs := range f.Recommendations {
		if !locale.IsSupported(lang) {
			return fmt.Errorf("unsupported language %q in recommendations", lang)
		}
		t.recommendations[locale.Normalize(lang)] = recs
	}
	for lang, s := range f.Disclaimers {
		if !locale.IsSupported(lang) {
			return fmt.Errorf("unsupported language %q in disclaimers", lang)
		}
		t.disclaimers[locale.Normalize(lang)] = s
	}
	for lang, titles := range f.TopicTitles {
		if !locale.IsSupported(lang) {
			return fmt.Errorf("unsupported language %q in topic_titles", lang)
		}
		code := locale.Normalize(lang)
		if t.topicTitles[code] == nil {
			t.topicTitles[code] = make(map[string]string, len(titles))
		}
		for topic, title := range titles {
			t.topicTitles[code][topic] = title
		}
	}
	if f.TopicPrompt != "" {
		t.topicPrompt = f.TopicPrompt
	}
	return nil
}

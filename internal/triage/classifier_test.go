package triage

import (
	"sync"
	"testing"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultTables())

	tests := []struct {
		name string
		text string
		want Category
	}{
		{"fever", "I have had a high temperature since yesterday", CategoryFever},
		{"fever wins over cough", "fever and cough", CategoryFever},
		{"respiratory", "dry cough at night", CategoryRespiratory},
		{"chest pain is respiratory by priority", "I have severe chest pain and can't breathe", CategoryRespiratory},
		{"digestive", "Stomach ache after lunch", CategoryDigestive},
		{"neurological", "constant headache and I feel dizzy", CategoryNeurological},
		{"cardiovascular", "my heart is racing", CategoryCardiovascular},
		{"musculoskeletal", "my knee joint is swollen", CategoryMusculoskeletal},
		{"general", "I feel tired", CategoryGeneral},
		{"empty", "", CategoryGeneral},
		{"hindi fever", "मुझे बुखार है", CategoryFever},
		{"tamil cough", "எனக்கு இருமல் உள்ளது", CategoryRespiratory},
		{"bengali stomach", "আমার পেট ব্যথা", CategoryDigestive},
		{"case insensitive", "FEVER", CategoryFever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		text string
		want Severity
	}{
		{"I have severe chest pain and can't breathe", SeverityHigh},
		{"mild rash but CHEST PAIN sometimes", SeverityHigh},
		{"bleeding from a cut", SeverityHigh},
		{"persistent cough", SeverityMedium},
		{"fever since morning", SeverityMedium},
		{"slight itch", SeverityLow},
		{"", SeverityLow},
	}
	for _, tt := range tests {
		if got := c.Severity(tt.text); got != tt.want {
			t.Errorf("Severity(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestHighSeverityRegardlessOfCategory(t *testing.T) {
	c := NewClassifier(nil)
	for _, text := range []string{
		"chest pain with fever",
		"stomach chest pain",
		"chest pain",
		"headache and chest pain",
	} {
		if got := c.Severity(text); got != SeverityHigh {
			t.Errorf("Severity(%q) = %s, want high", text, got)
		}
	}
}

func TestClassifierConcurrentUse(t *testing.T) {
	c := NewClassifier(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if c.Classify("Fever and cough") != CategoryFever {
					t.Error("unexpected category")
					return
				}
			}
		}()
	}
	wg.Wait()
}

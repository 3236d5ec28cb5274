package triage

import (
	"sort"

	"aarogya/internal/locale"

	"golang.org/x/text/cases"
)

// Category is a coarse symptom domain used to pick a prompt template.
type Category string

const (
	CategoryFever           Category = "fever"
	CategoryRespiratory     Category = "respiratory"
	CategoryDigestive       Category = "digestive"
	CategoryNeurological    Category = "neurological"
	CategoryCardiovascular  Category = "cardiovascular"
	CategoryMusculoskeletal Category = "musculoskeletal"
	CategoryGeneral         Category = "general"
)

// Severity is a keyword-derived urgency signal. Advisory only.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Priority is the order in which category rules are checked.
var Priority = []Category{
	CategoryFever,
	CategoryRespiratory,
	CategoryDigestive,
	CategoryNeurological,
	CategoryCardiovascular,
	CategoryMusculoskeletal,
}

// ParseCategory returns the category named s, if any. General is accepted.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if c == CategoryGeneral {
		return c, true
	}
	for _, p := range Priority {
		if p == c {
			return c, true
		}
	}
	return "", false
}

// Tables holds the keyword and prompt tables. A Tables value is never
// modified after construction, so it is safe to share between requests.
type Tables struct {
	keywords        map[Category][]string
	highSeverity    []string
	mediumSeverity  []string
	prompts         map[Category]string
	instructions    map[string]string
	directive       string
	recommendations map[string][]string
	disclaimers     map[string]string
	topicTitles     map[string]map[string]string
	topicPrompt     string
}

// Keywords returns the case-folded keywords for c.
func (t *Tables) Keywords(c Category) []string {
	return t.keywords[c]
}

// Prompt returns the system prompt for c, or the general prompt.
func (t *Tables) Prompt(c Category) string {
	if p, ok := t.prompts[c]; ok {
		return p
	}
	return t.prompts[CategoryGeneral]
}

// Instruction returns the response-language instruction for lang.
func (t *Tables) Instruction(lang string) string {
	if s, ok := t.instructions[locale.Normalize(lang)]; ok {
		return s
	}
	return t.instructions[locale.Default]
}

// Directive is appended to every system prompt.
func (t *Tables) Directive() string {
	return t.directive
}

// Recommendations returns general care advice for lang. The slice is a copy.
func (t *Tables) Recommendations(lang string) []string {
	recs, ok := t.recommendations[locale.Normalize(lang)]
	if !ok {
		recs = t.recommendations[locale.Default]
	}
	out := make([]string, len(recs))
	copy(out, recs)
	return out
}

// Disclaimer returns the medical disclaimer for lang.
func (t *Tables) Disclaimer(lang string) string {
	if s, ok := t.disclaimers[locale.Normalize(lang)]; ok {
		return s
	}
	return t.disclaimers[locale.Default]
}

// TopicTitle returns the localized title of a known topic key.
func (t *Tables) TopicTitle(topic, lang string) (string, bool) {
	titles, ok := t.topicTitles[locale.Normalize(lang)]
	if !ok {
		titles = t.topicTitles[locale.Default]
	}
	if s, ok := titles[topic]; ok {
		return s, true
	}
	if s, ok := t.topicTitles[locale.Default][topic]; ok {
		return s, true
	}
	return "", false
}

// Topics returns the known topic keys in sorted order.
func (t *Tables) Topics() []string {
	en := t.topicTitles[locale.Default]
	keys := make([]string, 0, len(en))
	for k := range en {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TopicPrompt is the system prompt used for health-topic explanations.
func (t *Tables) TopicPrompt() string {
	return t.topicPrompt
}

func foldAll(words []string) []string {
	c := cases.Fold()
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = c.String(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// DefaultTables returns the built-in tables.
func DefaultTables() *Tables {
	t := &Tables{
		keywords: map[Category][]string{
			CategoryFever: foldAll([]string{
				"fever", "temperature", "hot", "chills",
				"बुखार", "காய்ச்சல்", "জ্বর", "జ్వరం", "ताप", "તાવ", "ಜ್ವರ",
			}),
			CategoryRespiratory: foldAll([]string{
				"cough", "breathing", "chest", "lungs",
				"खांसी", "இருமல்", "কাশি", "దగ్గు", "खोकला", "ઉધરસ", "ಕೆಮ್ಮು",
			}),
			CategoryDigestive: foldAll([]string{
				"stomach", "nausea", "vomiting", "diarrhea",
				"पेट", "வயிறு", "পেট", "కడుపు", "पोट", "પેટ", "ಹೊಟ್ಟೆ",
			}),
			CategoryNeurological: foldAll([]string{
				"headache", "dizz", "migraine", "seizure", "numb",
				"सिरदर्द", "चक्कर", "தலைவலி",
			}),
			CategoryCardiovascular: foldAll([]string{
				"heart", "palpitation", "blood pressure",
				"हृदय", "दिल", "இதயம்",
			}),
			CategoryMusculoskeletal: foldAll([]string{
				"joint", "back pain", "muscle", "sprain", "fracture",
				"जोड़ों", "मांसपेशि", "மூட்டு",
			}),
		},
		highSeverity: foldAll([]string{
			"severe", "intense", "unbearable", "emergency", "chest pain",
			"difficulty breathing", "unconscious", "bleeding", "stroke",
			"heart attack", "suicide", "overdose",
		}),
		mediumSeverity: foldAll([]string{
			"moderate", "persistent", "worsening", "fever", "vomiting",
			"diarrhea", "headache", "pain",
		}),
		prompts: map[Category]string{
			CategoryFever: "You are a medical AI assistant specializing in fever-related conditions. " +
				"Analyze the symptoms and provide concise, helpful information about possible causes " +
				"and general care recommendations. Focus on fever management, hydration, and when to seek medical care. " +
				"Always include a medical disclaimer that this is not professional medical advice.",
			CategoryRespiratory: "You are a medical AI assistant specializing in respiratory conditions. " +
				"Focus on cough, breathing difficulties, and lung-related symptoms. " +
				"Provide guidance on respiratory care and general management.",
			CategoryDigestive: "You are a medical AI assistant specializing in digestive conditions. " +
				"Focus on stomach pain, nausea, vomiting, and diarrhea. Provide guidance on dietary management.",
			CategoryNeurological: "You are a medical AI assistant specializing in neurological symptoms. " +
				"Focus on headaches, dizziness, numbness, and seizures. " +
				"Clearly flag warning signs that need urgent medical attention.",
			CategoryCardiovascular: "You are a medical AI assistant specializing in heart and circulation symptoms. " +
				"Focus on palpitations, blood pressure, and chest discomfort. " +
				"Treat possible cardiac emergencies with urgency and advise immediate care when in doubt.",
			CategoryMusculoskeletal: "You are a medical AI assistant specializing in muscle, bone, and joint problems. " +
				"Focus on pain relief, rest, mobility, and signs of injury that need a doctor.",
			CategoryGeneral: "You are a medical AI assistant providing general health guidance. " +
				"Analyze the described symptoms and provide helpful, concise information about possible causes " +
				"and general care recommendations. Always include a medical disclaimer.",
		},
		instructions: map[string]string{
			"en": "Respond in clear, simple English.",
			"hi": "Respond in Hindi (हिंदी). Use simple, clear language.",
			"ta": "Respond in Tamil (தமிழ்). Use simple, clear language.",
			"bn": "Respond in Bengali (বাংলা). Use simple, clear language.",
			"te": "Respond in Telugu (తెలుగు). Use simple, clear language.",
			"mr": "Respond in Marathi (मराठी). Use simple, clear language.",
			"gu": "Respond in Gujarati (ગુજરાતી). Use simple, clear language.",
			"kn": "Respond in Kannada (ಕನ್ನಡ). Use simple, clear language.",
		},
		directive: "Keep the response under 250 words. Include possible causes, care recommendations, " +
			"when to seek medical care, and a medical disclaimer. " +
			"Strictly follow these instructions and provide a helpful, safe response.",
		recommendations: map[string][]string{
			"en": {
				"Stay hydrated by drinking plenty of water",
				"Get adequate rest and sleep",
				"Monitor your symptoms closely",
				"Consult a healthcare professional if symptoms persist or worsen",
				"Maintain good hygiene practices",
			},
			"hi": {
				"पर्याप्त पानी पीकर हाइड्रेटेड रहें",
				"पर्याप्त आराम और नींद लें",
				"अपने लक्षणों की बारीकी से निगरानी करें",
				"यदि लक्षण बने रहते हैं या बिगड़ते हैं तो स्वास्थ्य पेशेवर से सलाह लें",
				"अच्छी स्वच्छता प्रथाओं को बनाए रखें",
			},
		},
		disclaimers: map[string]string{
			"en": "This is AI-generated information and should not replace professional medical advice. " +
				"Please consult a qualified healthcare provider for proper diagnosis and treatment.",
			"hi": "यह AI-जनित जानकारी है और इसे पेशेवर चिकित्सा सलाह का विकल्प नहीं माना जाना चाहिए। " +
				"उचित निदान और उपचार के लिए कृपया एक योग्य स्वास्थ्य सेवा प्रदाता से सलाह लें।",
		},
		topicTitles: map[string]map[string]string{
			"en": {
				"fever":         "Understanding Fever",
				"cough":         "Understanding Cough",
				"diabetes":      "Managing Diabetes",
				"mental-health": "Mental Health & Wellness",
				"first-aid":     "First Aid Basics",
				"nutrition":     "Nutrition & Healthy Eating",
			},
			"hi": {
				"fever":         "बुखार को समझना",
				"cough":         "खांसी को समझना",
				"diabetes":      "मधुमेह का प्रबंधन",
				"mental-health": "मानसिक स्वास्थ्य और कल्याण",
				"first-aid":     "प्राथमिक चिकित्सा की मूल बातें",
				"nutrition":     "पोषण और स्वस्थ भोजन",
			},
		},
		topicPrompt: "You are a medical AI assistant writing short patient-education notes. " +
			"Explain the topic in plain language: what it is, common signs, simple self-care, " +
			"and when to see a doctor. End with a medical disclaimer.",
	}
	return t
}

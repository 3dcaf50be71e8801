// Package intent classifies finalized utterances into the reply paths the
// gateway knows how to serve. The heuristics are keyword and pattern based;
// they favor precision on weather questions and fall through to general
// chat for everything else.
package intent

import (
	"regexp"
	"strings"
)

type Kind int

const (
	GeneralChat Kind = iota
	Weather
	WebSearch
)

func (k Kind) String() string {
	switch k {
	case Weather:
		return "weather"
	case WebSearch:
		return "websearch"
	default:
		return "chat"
	}
}

// Intent is the classification result. City is only meaningful for Weather
// and may be empty when a weather question names no recognizable place.
type Intent struct {
	Kind Kind
	City string
}

var weatherKeywords = []string{
	"weather", "temperature", "forecast", "climate", "hot", "cold", "sunny",
	"rainy", "snow", "wind", "humidity", "degrees", "celsius", "fahrenheit",
}

var cityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`what'?s?\s+(?:the\s+)?weather\s+(?:like\s+)?(?:in|at|for)\s+([^?]+)`),
	regexp.MustCompile(`weather\s+(?:in|at|for)\s+([^?]+)`),
	regexp.MustCompile(`temperature\s+(?:in|at|for)\s+([^?]+)`),
	regexp.MustCompile(`how\s+(?:hot|cold)\s+(?:is\s+it\s+)?(?:in|at)\s+([^?]+)`),
	regexp.MustCompile(`forecast\s+(?:for|in)\s+([^?]+)`),
	regexp.MustCompile(`climate\s+(?:in|at)\s+([^?]+)`),
}

var webKeywords = []string{
	"who won", "winner", "latest", "breaking", "news", "today",
	"price", "prices", "cost", "how much", "release date", "2024", "2025", "2026",
	"score", "result", "final", "vs ", "schedule", "fixtures",
}

// Words that follow a weather keyword but never name a city.
var cityStopWords = map[string]bool{
	"in": true, "at": true, "for": true, "the": true,
	"is": true, "like": true, "today": true, "now": true,
}

var cityPunct = strings.NewReplacer("?", "", ".", "", "!", "", ",", "")

// Classify maps text to a reply intent. Weather takes priority over web
// search when both keyword sets match.
func Classify(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Intent{Kind: GeneralChat}
	}

	if isWeather, city := weatherQuery(lower); isWeather {
		return Intent{Kind: Weather, City: city}
	}

	for _, kw := range webKeywords {
		if strings.Contains(lower, kw) {
			return Intent{Kind: WebSearch}
		}
	}
	return Intent{Kind: GeneralChat}
}

func weatherQuery(lower string) (bool, string) {
	hasKeyword := false
	for _, kw := range weatherKeywords {
		if strings.Contains(lower, kw) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false, ""
	}

	for _, pat := range cityPatterns {
		m := pat.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		city := strings.TrimSpace(cityPunct.Replace(m[1]))
		if city != "" {
			return true, city
		}
	}

	// Pattern miss. Handles phrasings like "weather paris" where the word
	// right after a keyword is the city.
	words := strings.Fields(lower)
	for i, word := range words {
		if !isWeatherKeyword(word) || i+1 >= len(words) {
			continue
		}
		next := words[i+1]
		if !cityStopWords[next] {
			return true, strings.TrimSpace(cityPunct.Replace(next))
		}
	}
	return true, ""
}

func isWeatherKeyword(word string) bool {
	for _, kw := range weatherKeywords {
		if word == kw {
			return true
		}
	}
	return false
}

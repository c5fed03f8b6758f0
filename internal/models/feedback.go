package models

import (
	"fmt"
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Sentiments lists every sentiment label in display order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

func ParseSentiment(s string) (Sentiment, error) {
	v := Sentiment(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid sentiment: %q", s)
	}
	return v, nil
}

type Topic string

const (
	TopicBug            Topic = "bug"
	TopicFeatureRequest Topic = "feature-request"
	TopicUIFeedback     Topic = "ui-feedback"
	TopicPerformance    Topic = "performance"
	TopicDocumentation  Topic = "documentation"
	TopicSupport        Topic = "support"
	TopicGeneral        Topic = "general"
)

// Topics is the closed classification vocabulary in canonical order. Detectors
// iterate it in this order, which also breaks frequency ties.
var Topics = []Topic{
	TopicBug,
	TopicFeatureRequest,
	TopicUIFeedback,
	TopicPerformance,
	TopicDocumentation,
	TopicSupport,
	TopicGeneral,
}

func (t Topic) Valid() bool {
	for _, v := range Topics {
		if v == t {
			return true
		}
	}
	return false
}

// Label renders a topic for humans, e.g. "feature-request" -> "Feature Request".
func (t Topic) Label() string {
	return titleWords(strings.ReplaceAll(string(t), "-", " "))
}

func ParseTopic(s string) (Topic, error) {
	v := Topic(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid topic: %q", s)
	}
	return v, nil
}

// ClassifiedFeedback is a normalized feedback record together with its
// sentiment and topic classification. Title, Content and Author are only used
// when the record is shown to the goal generator as evidence.
type ClassifiedFeedback struct {
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	Author     string    `json:"author"`
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Sentiment  Sentiment `json:"sentiment"`
	Topics     []Topic   `json:"topics"`
	Confidence float64   `json:"confidence,omitempty"`
}

func (f ClassifiedFeedback) HasTopic(topic Topic) bool {
	for _, t := range f.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// Validate checks the classification invariants of a record.
func (f ClassifiedFeedback) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("feedback id is required")
	}
	if f.Timestamp.IsZero() {
		return fmt.Errorf("feedback %s: timestamp is required", f.ID)
	}
	if !f.Sentiment.Valid() {
		return fmt.Errorf("feedback %s: invalid sentiment %q", f.ID, f.Sentiment)
	}
	if len(f.Topics) == 0 {
		return fmt.Errorf("feedback %s: at least one topic is required", f.ID)
	}
	seen := make(map[Topic]bool, len(f.Topics))
	for _, t := range f.Topics {
		if !t.Valid() {
			return fmt.Errorf("feedback %s: invalid topic %q", f.ID, t)
		}
		// Aggregates count one mention per topic per record
		if seen[t] {
			return fmt.Errorf("feedback %s: duplicate topic %q", f.ID, t)
		}
		seen[t] = true
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("feedback %s: confidence %.2f out of range [0,1]", f.ID, f.Confidence)
	}
	return nil
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Package tagging classifies document text into a structured label set using
// a generative model with a strict JSON contract.
package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/seekdocs/tansaku/internal/genai"
	"github.com/seekdocs/tansaku/internal/models"
	"github.com/seekdocs/tansaku/pkg/utils"
)

const (
	maxTitleChars   = 200
	maxExcerptChars = 8000
)

const systemPrompt = "Return only valid JSON."

const promptTemplate = `You are a precise document tagger. Return STRICT JSON:
{
 "doc_type": "...",
 "domain": "...",
 "topics": ["..."],
 "sensitivity": "...",
 "confidence": 0.0
}
Constraints:
- doc_type must be one of: %s
- domain must be one of: %s
- sensitivity must be one of: %s
Input:
Title: %s
Excerpt:
"""%s"""`

// braceObject matches the first brace-delimited object in a response.
// Model output is untrusted; anything around the object is ignored.
var braceObject = regexp.MustCompile(`(?s)\{.*\}`)

// TagResult carries the classifier output. Degraded is true when the model
// was unreachable or its output failed to parse and defaults were applied.
type TagResult struct {
	models.TagSet
	Degraded bool
}

// Classifier assigns doc_type/domain/topics/sensitivity labels to documents.
type Classifier struct {
	client             genai.Client
	defaultSensitivity models.Sensitivity
	logger             *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets a logger for degradation events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// NewClassifier creates a classifier. defaultSensitivity is applied when the
// model omits or mislabels the sensitivity field.
func NewClassifier(client genai.Client, defaultSensitivity models.Sensitivity, opts ...Option) *Classifier {
	if !defaultSensitivity.Valid() {
		defaultSensitivity = models.SensitivityInternal
	}
	c := &Classifier{client: client, defaultSensitivity: defaultSensitivity}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify tags a document from its title and excerpt. It never fails:
// model errors and unparseable output degrade to defaults, and every field
// is validated against its closed vocabulary independently.
func (c *Classifier) Classify(ctx context.Context, title, excerpt string) TagResult {
	prompt := fmt.Sprintf(promptTemplate,
		strings.Join(models.DocTypes, ", "),
		strings.Join(models.Domains, ", "),
		strings.Join(models.Sensitivities, ", "),
		utils.Truncate(title, maxTitleChars),
		utils.Truncate(excerpt, maxExcerptChars),
	)
	raw, err := c.client.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("tagging degraded to defaults", zap.Error(err))
		}
		return c.defaults()
	}
	parsed, ok := extractJSON(raw)
	if !ok && c.logger != nil {
		c.logger.Warn("tagging response unparseable, using defaults", zap.String("response", utils.Truncate(raw, 200)))
	}
	return c.validate(parsed, ok)
}

// rawTags mirrors the JSON contract; all fields optional.
type rawTags struct {
	DocType     *string  `json:"doc_type"`
	Domain      *string  `json:"domain"`
	Topics      []string `json:"topics"`
	Sensitivity *string  `json:"sensitivity"`
	Confidence  *float64 `json:"confidence"`
}

// extractJSON pulls the first brace-delimited object out of a model response
// and unmarshals it. Markdown code fences are stripped first.
func extractJSON(s string) (rawTags, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	m := braceObject.FindString(s)
	if m == "" {
		return rawTags{}, false
	}
	var raw rawTags
	if err := json.Unmarshal([]byte(m), &raw); err != nil {
		return rawTags{}, false
	}
	return raw, true
}

// validate applies per-field defaults and closed-vocabulary checks.
// Out-of-vocabulary values substitute "Other" (or the default sensitivity)
// rather than passing through.
func (c *Classifier) validate(raw rawTags, parsed bool) TagResult {
	res := TagResult{Degraded: !parsed}
	res.DocType = "Other"
	if raw.DocType != nil && models.InVocabulary(*raw.DocType, models.DocTypes) {
		res.DocType = *raw.DocType
	}
	res.Domain = "Other"
	if raw.Domain != nil && models.InVocabulary(*raw.Domain, models.Domains) {
		res.Domain = *raw.Domain
	}
	res.Topics = []string{}
	if raw.Topics != nil {
		res.Topics = raw.Topics
	}
	res.Sensitivity = c.defaultSensitivity
	if raw.Sensitivity != nil && models.Sensitivity(*raw.Sensitivity).Valid() {
		res.Sensitivity = models.Sensitivity(*raw.Sensitivity)
	}
	res.Confidence = 0.5
	if raw.Confidence != nil {
		conf := *raw.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		res.Confidence = conf
	}
	return res
}

func (c *Classifier) defaults() TagResult {
	return TagResult{
		TagSet: models.TagSet{
			DocType:     "Other",
			Domain:      "Other",
			Topics:      []string{},
			Sensitivity: c.defaultSensitivity,
			Confidence:  0.5,
		},
		Degraded: true,
	}
}

// Package extract pulls structured lead fields out of forwarded emails
// using the Gemini API.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"outreach_backend/internal/llm"
	"outreach_backend/internal/secrets"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"google.golang.org/genai"
)

const (
	geminiModel       = "gemini-1.5-pro"
	geminiTemperature = 0.2
	geminiTopP        = 0.8
	geminiTopK        = 40
)

// LeadInfo is the structured lead a forwarded email resolves to.
type LeadInfo struct {
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	PhoneNumber string         `json:"phoneNumber"`
	Tags        TagList        `json:"tags"`
	Email       string         `json:"email"`
	Address     *store.Address `json:"address,omitempty"`
}

// TagList decodes either a JSON array or a comma-separated string, the
// model produces both shapes.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		*t = nil
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(joined, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	*t = tags
	return nil
}

// Extractor pulls structured lead info out of a raw email body.
type Extractor interface {
	ExtractLead(ctx context.Context, emailBody string) (*LeadInfo, error)
}

// Gemini is the production Extractor backed by the Gemini API.
type Gemini struct {
	secretsRes secrets.Resolver
	log        *logger.Logger

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGemini creates an Extractor that resolves its API key lazily.
func NewGemini(secretsRes secrets.Resolver, log *logger.Logger) *Gemini {
	return &Gemini{secretsRes: secretsRes, log: log}
}

func (g *Gemini) init(ctx context.Context) error {
	g.once.Do(func() {
		key, err := g.secretsRes.Resolve(ctx, secrets.NameGeminiAPIKey)
		if err != nil {
			g.initErr = apperr.Wrap(apperr.KindInternal, "resolve gemini credentials", err)
			return
		}
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.initErr
}

// ExtractLead asks the model for the lead fields in a forwarded email.
func (g *Gemini) ExtractLead(ctx context.Context, emailBody string) (*LeadInfo, error) {
	if err := g.init(ctx); err != nil {
		return nil, err
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel,
		genai.Text(extractionPrompt(emailBody)),
		&genai.GenerateContentConfig{
			Temperature:    genai.Ptr[float32](geminiTemperature),
			TopP:           genai.Ptr[float32](geminiTopP),
			TopK:           genai.Ptr[float32](geminiTopK),
			SafetySettings: permissiveSafetySettings(),
		},
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "extract lead info", err)
	}

	return ParseLeadInfo(result.Text())
}

// Lead emails routinely trip over-eager content filters (addresses,
// phone numbers), so extraction runs with filtering off.
func permissiveSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryHarassment,
		genai.HarmCategorySexuallyExplicit,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return settings
}

func extractionPrompt(emailBody string) string {
	return fmt.Sprintf(`Extract real estate lead information from the following email body.
The email contains details about a potential real estate lead.
Extract the following information, if present:
- First Name
- Last Name
- Phone Number (format as a string with just digits)
- Email Address
- Any relevant tags or categories (e.g., "buyer", "seller", "investor")
- Zip Code
- City
- State
- Street Address

If any field is not found, leave it empty. Be as accurate as possible in extracting the information.
Return the information as a JSON object with the following structure:

{
  "firstName": "",
  "lastName": "",
  "phoneNumber": "",
  "tags": [],
  "email": "",
  "address": {
    "zip": "",
    "city": "",
    "state": "",
    "street": ""
  }
}

Email body:
%s`, emailBody)
}

var braceBlockRe = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseLeadInfo decodes the model's JSON answer, tolerating markdown
// fences or surrounding prose around the object.
func ParseLeadInfo(raw string) (*LeadInfo, error) {
	cleaned := llm.StripJSONFences(raw)
	if !strings.HasPrefix(cleaned, "{") {
		match := braceBlockRe.FindString(cleaned)
		if match == "" {
			return nil, apperr.Internal("no JSON content found in lead extraction response")
		}
		cleaned = match
	}

	var info LeadInfo
	if err := json.Unmarshal([]byte(cleaned), &info); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "parse lead info", err)
	}
	return &info, nil
}

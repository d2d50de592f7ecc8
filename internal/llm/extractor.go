package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwatch/railwatch/internal/model"
)

// extractionPayload mirrors the JSON schema the prompt demands.
type extractionPayload struct {
	IncidentDate    *string  `json:"incident_date"`
	IncidentTime    *string  `json:"incident_time"`
	LocationFull    *string  `json:"location_full"`
	LocationCity    *string  `json:"location_city"`
	VictimName      *string  `json:"victim_name"`
	VictimAge       *int     `json:"victim_age"`
	VictimGender    *string  `json:"victim_gender"`
	Mode            *string  `json:"mode"`
	Details         *string  `json:"details"`
	IsSuicide       *string  `json:"is_suicide"`
	IsRetrospective bool     `json:"is_retrospective"`
	Confidence      *float64 `json:"confidence"`
}

// Extractor turns article text into a structured incident via a completion
// provider. The incident date it recovers is the date the incident occurred,
// which routinely differs from the publish date.
type Extractor struct {
	provider Provider
	cfg      model.LLMConfig
	log      zerolog.Logger
	now      func() time.Time
}

// NewExtractor builds an extractor around a provider.
func NewExtractor(provider Provider, cfg model.LLMConfig, log zerolog.Logger) *Extractor {
	return &Extractor{
		provider: provider,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Extract runs one article through the provider. It returns (nil, nil) when
// the article was processed but rejected: confidence below the floor,
// retrospective coverage, or an incident too old to be news.
func (e *Extractor) Extract(ctx context.Context, articleText string, publishDate *time.Time) (*model.ExtractedIncident, error) {
	if e.provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	if max := e.cfg.MaxArticleChars; max > 0 {
		runes := []rune(articleText)
		if len(runes) > max {
			articleText = string(runes[:max])
		}
	}

	published := ""
	if publishDate != nil {
		published = publishDate.Format("2006-01-02")
	}

	raw, err := e.provider.Complete(ctx, BuildExtractionPrompt(articleText, published))
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}

	confidence := 0.0
	if payload.Confidence != nil {
		confidence = *payload.Confidence
	}
	if confidence < e.cfg.MinConfidence {
		e.log.Debug().Float64("confidence", confidence).Msg("extraction below confidence floor")
		return nil, nil
	}
	if payload.IsRetrospective {
		e.log.Debug().Msg("retrospective coverage, skipping")
		return nil, nil
	}

	incident := &model.ExtractedIncident{
		IncidentTime:  deref(payload.IncidentTime),
		LocationFull:  deref(payload.LocationFull),
		LocationCity:  deref(payload.LocationCity),
		VictimName:    deref(payload.VictimName),
		VictimAge:     payload.VictimAge,
		VictimGender:  deref(payload.VictimGender),
		Mode:          deref(payload.Mode),
		Details:       deref(payload.Details),
		Suicide:       deref(payload.IsSuicide),
		Confidence:    confidence,
		Retrospective: payload.IsRetrospective,
	}
	if incident.Mode == "" {
		incident.Mode = "Unknown"
	}
	if incident.Suicide == "" {
		incident.Suicide = "Unknown"
	}

	if payload.IncidentDate != nil {
		if parsed, err := time.Parse("2006-01-02", *payload.IncidentDate); err == nil {
			today := e.now().UTC().Truncate(24 * time.Hour)
			age := int(today.Sub(parsed.UTC().Truncate(24*time.Hour)).Hours() / 24)
			switch {
			case age < 0:
				// Future date is a hallucination; keep the rest of the record.
			case e.cfg.MaxIncidentAge > 0 && age > e.cfg.MaxIncidentAge:
				e.log.Debug().Str("date", *payload.IncidentDate).Int("days_old", age).Msg("incident too old, skipping")
				return nil, nil
			default:
				incident.IncidentDate = &parsed
			}
		}
	}

	return incident, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

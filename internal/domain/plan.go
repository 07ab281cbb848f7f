package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TopicStatus is the learner's self-assessed familiarity with a plan topic.
type TopicStatus string

const (
	StatusNeedToLearn TopicStatus = "need_to_learn"
	StatusNeedReview  TopicStatus = "need_review"
	StatusKnowWell    TopicStatus = "know_well"
)

// PlanTopicContent is one topic inside a versioned plan revision.
type PlanTopicContent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      TopicStatus `json:"status"`
}

// PlanContent is the structured body of a plan revision, as produced by the
// plan generator and stored in PlanRevision.ContentJSON.
type PlanContent struct {
	Topics []PlanTopicContent `json:"topics"`
}

// Validate checks the structural invariants of generated plan content:
// at least one topic, non-blank ids and titles, unique ids, and a known
// status per topic.
func (p *PlanContent) Validate() error {
	if len(p.Topics) == 0 {
		return fmt.Errorf("plan has no topics")
	}
	seen := make(map[string]struct{}, len(p.Topics))
	for i, t := range p.Topics {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("topic %d: blank id", i)
		}
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("topic %q: blank title", t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("topic %q: duplicate id", t.ID)
		}
		seen[t.ID] = struct{}{}
		switch t.Status {
		case StatusNeedToLearn, StatusNeedReview, StatusKnowWell:
		default:
			return fmt.Errorf("topic %q: unknown status %q", t.ID, t.Status)
		}
	}
	return nil
}

// DraftTopic is one entry of a session's editable draft plan.
type DraftTopic struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsCompleted bool   `json:"is_completed"`
}

// DraftPlan is the mutable mirror of the latest plan revision, kept on the
// session while it is in PLANNING. It is what the client edits (topic
// completion toggles) and what the materializer reads.
type DraftPlan struct {
	Topics []DraftTopic `json:"topics"`
}

// DraftFromContent converts versioned plan content into a fresh draft.
// Completion flags always reset: a new revision supersedes prior edits.
func DraftFromContent(c *PlanContent) *DraftPlan {
	d := &DraftPlan{Topics: make([]DraftTopic, 0, len(c.Topics))}
	for _, t := range c.Topics {
		d.Topics = append(d.Topics, DraftTopic{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
		})
	}
	return d
}

// ParseDraftPlan decodes the session's serialized draft plan column.
func ParseDraftPlan(raw string) (*DraftPlan, error) {
	var d DraftPlan
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode draft plan: %w", err)
	}
	return &d, nil
}

// EncodeDraftPlan serializes a draft plan for storage on the session row.
func EncodeDraftPlan(d *DraftPlan) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode draft plan: %w", err)
	}
	return string(b), nil
}

package domain

// Campaign is a deployment of one or more surveys to a group of uploaders.
// Definitions are decoded from the campaign store and checked once before
// use.
type Campaign struct {
	URN         string   `json:"urn" bson:"urn"`
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Surveys     []Survey `json:"surveys" bson:"surveys"`
}

// Survey is one administered questionnaire within a campaign.
type Survey struct {
	ID             string          `json:"id" bson:"id"`
	Title          string          `json:"title" bson:"title"`
	Description    string          `json:"description,omitempty" bson:"description,omitempty"`
	Prompts        []Prompt        `json:"prompts" bson:"prompts"`
	RepeatableSets []RepeatableSet `json:"repeatableSets,omitempty" bson:"repeatableSets,omitempty"`
}

// RepeatableSet groups prompts that may be answered several times within one
// survey instance, each pass identified by an iteration index.
type RepeatableSet struct {
	ID      string   `json:"id" bson:"id"`
	Prompts []Prompt `json:"prompts" bson:"prompts"`
}

// Survey returns the survey with the given ID.
func (c Campaign) Survey(id string) (Survey, bool) {
	for _, s := range c.Surveys {
		if s.ID == id {
			return s, true
		}
	}
	return Survey{}, false
}

// CheckDefinition validates the whole campaign: every prompt definition must
// pass its own check, IDs must be unique within their scope, and prompts
// must name the repeatable set that actually contains them.
func (c Campaign) CheckDefinition() error {
	if c.URN == "" {
		return definitionErrorf("", "campaign urn is empty")
	}
	if c.Title == "" {
		return definitionErrorf("", "campaign title is empty")
	}
	surveyIDs := make(map[string]struct{}, len(c.Surveys))
	for _, s := range c.Surveys {
		if s.ID == "" {
			return definitionErrorf("", "survey id is empty")
		}
		if _, dup := surveyIDs[s.ID]; dup {
			return definitionErrorf("", "duplicate survey id %q", s.ID)
		}
		surveyIDs[s.ID] = struct{}{}
		if err := s.checkDefinition(); err != nil {
			return err
		}
	}
	return nil
}

func (s Survey) checkDefinition() error {
	promptIDs := make(map[string]struct{})
	check := func(p Prompt, wantSet string) error {
		if _, dup := promptIDs[p.ID]; dup && p.ID != "" {
			return definitionErrorf(p.ID, "duplicate prompt id in survey %q", s.ID)
		}
		promptIDs[p.ID] = struct{}{}
		if p.RepeatableSetID != wantSet {
			return definitionErrorf(p.ID, "prompt names repeatable set %q but lives in %q", p.RepeatableSetID, wantSet)
		}
		return p.CheckDefinition()
	}

	for _, p := range s.Prompts {
		if err := check(p, ""); err != nil {
			return err
		}
	}
	setIDs := make(map[string]struct{}, len(s.RepeatableSets))
	for _, rs := range s.RepeatableSets {
		if rs.ID == "" {
			return definitionErrorf("", "repeatable set id is empty in survey %q", s.ID)
		}
		if _, dup := setIDs[rs.ID]; dup {
			return definitionErrorf("", "duplicate repeatable set id %q", rs.ID)
		}
		setIDs[rs.ID] = struct{}{}
		for _, p := range rs.Prompts {
			if err := check(p, rs.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Prompt looks up a prompt by its repeatable-set membership and ID. An empty
// repeatableSetID addresses the survey's top-level prompts.
func (s Survey) Prompt(repeatableSetID, promptID string) (Prompt, bool) {
	if repeatableSetID == "" {
		for _, p := range s.Prompts {
			if p.ID == promptID {
				return p, true
			}
		}
		return Prompt{}, false
	}
	for _, rs := range s.RepeatableSets {
		if rs.ID != repeatableSetID {
			continue
		}
		for _, p := range rs.Prompts {
			if p.ID == promptID {
				return p, true
			}
		}
	}
	return Prompt{}, false
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Slot string

const (
	Morning   Slot = "morning"
	Afternoon Slot = "afternoon"
	Evening   Slot = "evening"
)

var Slots = []Slot{Morning, Afternoon, Evening}

type PlanItem struct {
	DayNumber       int    `json:"day_number"`
	Hour            string `json:"hour"`
	ActivityTitle   string `json:"activity_title"`
	ActivityContent string `json:"activity_content"`
}

// Plan is either free-form text or an ordered list of items. On the wire it is
// a JSON string or a JSON array.
type Plan struct {
	Text  string
	Items []PlanItem
}

func TextPlan(text string) *Plan { return &Plan{Text: text} }

func ItemsPlan(items []PlanItem) *Plan {
	if items == nil {
		items = []PlanItem{}
	}
	return &Plan{Items: items}
}

func (p Plan) IsText() bool { return p.Items == nil }

// Days returns the distinct day numbers in order of appearance.
func (p Plan) Days() []int {
	var days []int
	seen := map[int]bool{}
	for _, it := range p.Items {
		if !seen[it.DayNumber] {
			seen[it.DayNumber] = true
			days = append(days, it.DayNumber)
		}
	}
	return days
}

func (p Plan) Day(n int) []PlanItem {
	var out []PlanItem
	for _, it := range p.Items {
		if it.DayNumber == n {
			out = append(out, it)
		}
	}
	return out
}

func (p Plan) MarshalJSON() ([]byte, error) {
	if p.Items != nil {
		return json.Marshal(p.Items)
	}
	return json.Marshal(p.Text)
}

func (p *Plan) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		p.Items = nil
		return json.Unmarshal(b, &p.Text)
	case '[':
		p.Text = ""
		p.Items = []PlanItem{}
		return json.Unmarshal(b, &p.Items)
	case 'n':
		*p = Plan{}
		return nil
	}
	return fmt.Errorf("plan: unexpected json %q", b[:1])
}

// OutputResponse is the terminal artifact of a turn.
type OutputResponse struct {
	Plan     *Plan    `json:"plan"`
	Contents []Option `json:"contents"`
	Message  string   `json:"message,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

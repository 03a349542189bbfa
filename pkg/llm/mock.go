package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go-tripplanner/pkg/prompts"
)

var (
	isoDate     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	fromCity    = regexp.MustCompile(`(?:from|From|FROM)\s+(\p{Lu}[\p{L}-]+)`)
	toCity      = regexp.MustCompile(`(?:\bto|\bTo|\bTO)\s+(\p{Lu}[\p{L}-]+)`)
	preferences = regexp.MustCompile(`(?i)preferences?\s*:\s*([^\n]+)`)
	word        = regexp.MustCompile(`\p{L}{5,}`)
)

// Mock is an offline Completer with rule based answers for every task. It
// keeps the service usable without model credentials.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Complete(_ context.Context, req Request) (string, error) {
	var out any
	switch req.Task {
	case prompts.TaskGuardianExtract:
		out = mockExtract(fmt.Sprint(req.Inputs["Conversation"]))
	case prompts.TaskSearchPlan:
		out = mockSearchPlan(req.Inputs)
	case prompts.TaskSelectorCriteria:
		out = mockCriteria(fmt.Sprint(req.Inputs["Preferences"]))
	case prompts.TaskItinerary:
		out = mockItinerary(req.Inputs)
	default:
		return "", fmt.Errorf("mock: unknown task %q", req.Task)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func mockExtract(conversation string) map[string]string {
	res := map[string]string{
		"departure_location": "",
		"arrival_location":   "",
		"departure_date":     "",
		"return_date":        "",
		"preferences":        "",
	}
	if m := fromCity.FindAllStringSubmatch(conversation, -1); len(m) > 0 {
		res["departure_location"] = m[len(m)-1][1]
	}
	if m := toCity.FindAllStringSubmatch(conversation, -1); len(m) > 0 {
		res["arrival_location"] = m[len(m)-1][1]
	}
	dates := isoDate.FindAllString(conversation, -1)
	if len(dates) > 0 {
		res["departure_date"] = dates[0]
	}
	if len(dates) > 1 {
		res["return_date"] = dates[len(dates)-1]
	}
	if m := preferences.FindAllStringSubmatch(conversation, -1); len(m) > 0 {
		res["preferences"] = strings.TrimSpace(m[len(m)-1][1])
	}
	return res
}

func mockSearchPlan(inputs map[string]any) map[string]any {
	query := fmt.Sprint(inputs["Query"])
	tools, _ := inputs["ToolNames"].([]string)
	calls := []map[string]any{}
	for _, tool := range tools {
		if inputs["Category"] == "flight" {
			for _, dir := range []string{"outbound", "return"} {
				calls = append(calls, map[string]any{
					"tool":      tool,
					"arguments": map[string]any{"query": query, "direction": dir},
					"direction": dir,
				})
			}
			continue
		}
		calls = append(calls, map[string]any{"tool": tool, "arguments": map[string]any{"query": query}})
	}
	return map[string]any{"calls": calls}
}

func mockCriteria(prefs string) map[string]any {
	keywords := append([]string{}, word.FindAllString(strings.ToLower(prefs), -1)...)
	return map[string]any{"limits": []any{}, "keywords": keywords, "include_bus": strings.Contains(strings.ToLower(prefs), "bus")}
}

func mockItinerary(inputs map[string]any) map[string]any {
	dest := fmt.Sprint(inputs["Destination"])
	slots, _ := inputs["SlotList"].([]map[string]any)
	items := make([]map[string]any, 0, len(slots))
	for _, s := range slots {
		items = append(items, map[string]any{
			"day_number":       s["day_number"],
			"hour":             s["hour"],
			"activity_title":   fmt.Sprintf("Explore %s", dest),
			"activity_content": fmt.Sprintf("Walk around central %s in the %s and try a local restaurant nearby.", dest, s["hour"]),
		})
	}
	return map[string]any{"items": items}
}

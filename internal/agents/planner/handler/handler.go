package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"go-tripplanner/pkg/data"
	"go-tripplanner/pkg/llm"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/models"
	"go-tripplanner/pkg/prompts"
)

type Handler struct {
	completer llm.Completer
}

func New(completer llm.Completer) *Handler {
	return &Handler{
		completer: completer,
	}
}

type Input struct {
	Selected    []models.Pick
	Weather     []models.Option
	Preferences string
	Destination string
	Span        models.Span
}

type itinerary struct {
	Items []models.PlanItem `json:"items"`
}

// Plan builds a day by day itinerary over the whole span. It never fails: a
// malformed answer degrades to a text plan, any other failure to default
// suggestions.
func (h *Handler) Plan(ctx context.Context, in Input) *models.Plan {
	l := log.With().Str(logger.AgentNameField, "planner").Logger()
	outbound, inbound := legs(in.Selected)
	slots := schedule(in.Span, outbound, inbound)

	var slotList []map[string]any
	byDay := map[int][]string{}
	for _, s := range slots {
		if s.transit != nil {
			continue
		}
		slotList = append(slotList, map[string]any{"day_number": s.day, "hour": string(s.slot)})
		byDay[s.day] = append(byDay[s.day], string(s.slot))
	}

	var answer []models.PlanItem
	if len(slotList) > 0 {
		res, err := llm.Generate[itinerary](ctx, h.completer, llm.Request{
			Task:     prompts.TaskItinerary,
			Template: prompts.Itinerary,
			Inputs: map[string]any{
				"Destination": destination(in.Destination),
				"Preferences": in.Preferences,
				"Options":     bullets(pickTexts(in.Selected)),
				"Weather":     bullets(optionTexts(in.Weather)),
				"Slots":       slotLines(in.Span.Days(), byDay),
				"SlotList":    slotList,
			},
		})
		var schemaErr *llm.SchemaError
		switch {
		case errors.As(err, &schemaErr):
			if text := data.StripFences(schemaErr.Raw); text != "" {
				l.Warn().Err(err).Msg("itinerary answer is not structured, returning it as text")
				return models.TextPlan(text)
			}
			l.Warn().Err(err).Msg("empty itinerary answer, using default suggestions")
		case err != nil:
			l.Warn().Err(err).Msg("itinerary generation failed, using default suggestions")
		default:
			answer = res.Items
		}
	}

	items := make([]models.PlanItem, 0, len(slots))
	for _, s := range slots {
		if s.transit != nil {
			items = append(items, transitItem(s, in.Destination))
			continue
		}
		if it, ok := find(answer, s); ok {
			items = append(items, it)
			continue
		}
		items = append(items, suggestion(s, in))
	}
	l.Info().Int("days", in.Span.Days()).Int("items", len(items)).Msg("itinerary planned")
	return models.ItemsPlan(items)
}

func legs(picks []models.Pick) (outbound, inbound *leg) {
	for _, p := range picks {
		if p.Category != models.Flight {
			continue
		}
		lg, ok := parseLeg(p.Option)
		if !ok {
			continue
		}
		switch {
		case p.Direction == models.Return && inbound == nil:
			inbound = &lg
		case p.Direction != models.Return && outbound == nil:
			outbound = &lg
		}
	}
	return outbound, inbound
}

func find(answer []models.PlanItem, s slot) (models.PlanItem, bool) {
	for _, it := range answer {
		if it.DayNumber == s.day && strings.EqualFold(strings.TrimSpace(it.Hour), string(s.slot)) &&
			strings.TrimSpace(it.ActivityTitle) != "" {
			it.Hour = string(s.slot)
			return it, true
		}
	}
	return models.PlanItem{}, false
}

func transitItem(s slot, dest string) models.PlanItem {
	content := "Travel day, no activities planned."
	if s.transit.option.Text != "" {
		content = "Transit: " + s.transit.option.Text
	}
	title := transitTitle
	if s.day == 1 {
		title += " to " + destination(dest)
	}
	return models.PlanItem{DayNumber: s.day, Hour: s.hour(), ActivityTitle: title, ActivityContent: content}
}

func suggestion(s slot, in Input) models.PlanItem {
	dest := destination(in.Destination)
	var title, content string
	switch s.slot {
	case models.Morning:
		title = "Morning walk in " + dest
		content = fmt.Sprintf("Explore the historic centre of %s and have breakfast at a local café.", dest)
	case models.Afternoon:
		title = "Sightseeing in " + dest
		content = fmt.Sprintf("Visit a museum or landmark in %s and have lunch at a restaurant nearby.", dest)
	default:
		title = "Evening in " + dest
		content = fmt.Sprintf("Have dinner in a lively neighbourhood of %s.", dest)
	}
	if date := in.Span.Start.AddDate(0, 0, s.day-1).Format(models.DateLayout); rainy(in.Weather, date) {
		content += " Rain is forecast, so prefer indoor places."
	}
	return models.PlanItem{DayNumber: s.day, Hour: string(s.slot), ActivityTitle: title, ActivityContent: content}
}

func rainy(weather []models.Option, date string) bool {
	for _, w := range weather {
		clauses := strings.FieldsFunc(strings.ToLower(w.Text), func(r rune) bool {
			return r == ',' || r == ';' || r == '\n'
		})
		for _, c := range clauses {
			if strings.Contains(c, "rain") && strings.Contains(c, date) {
				return true
			}
		}
	}
	return false
}

func destination(d string) string {
	if strings.TrimSpace(d) == "" {
		return "your destination"
	}
	return d
}

func slotLines(days int, byDay map[int][]string) string {
	var b strings.Builder
	for day := 1; day <= days; day++ {
		if len(byDay[day]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "day %d: %s\n", day, strings.Join(byDay[day], ", "))
	}
	return b.String()
}

func pickTexts(picks []models.Pick) []string {
	var out []string
	for _, p := range picks {
		prefix := string(p.Category)
		if p.Direction != models.NoDirection {
			prefix = string(p.Direction) + " " + prefix
		}
		out = append(out, prefix+": "+p.Option.Text)
	}
	return out
}

func optionTexts(opts []models.Option) []string {
	var out []string
	for _, o := range opts {
		out = append(out, o.Text)
	}
	return out
}

func bullets(lines []string) string {
	if len(lines) == 0 {
		return "none"
	}
	return "- " + strings.Join(lines, "\n- ")
}

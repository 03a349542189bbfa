package selector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"go-tripplanner/pkg/llm"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/models"
	"go-tripplanner/pkg/prompts"
)

type Limit struct {
	Category string  `json:"category" jsonschema:"one of the categories"`
	MaxPrice float64 `json:"max_price" jsonschema:"highest acceptable price"`
}

// Criteria is the structured reading of the traveller's preferences.
type Criteria struct {
	Limits     []Limit  `json:"limits"`
	Keywords   []string `json:"keywords"`
	IncludeBus bool     `json:"include_bus"`
}

func (c Criteria) limit(cat models.Category) (float64, bool) {
	for _, l := range c.Limits {
		if got, ok := models.ParseCategory(l.Category); ok && got == cat && l.MaxPrice > 0 {
			return l.MaxPrice, true
		}
	}
	return 0, false
}

type Result struct {
	Picks []models.Pick
	// Weather options are never picked; they are handed to the planner.
	Weather  []models.Option
	Warnings []string
}

func (r Result) Options() []models.Option {
	out := make([]models.Option, 0, len(r.Picks))
	for _, p := range r.Picks {
		out = append(out, p.Option)
	}
	return out
}

type Selector struct {
	completer llm.Completer
}

func New(c llm.Completer) *Selector {
	return &Selector{completer: c}
}

// Select reduces the search results to at most one option per category, two
// for flights.
func (s *Selector) Select(ctx context.Context, found []models.Found, preferences string) Result {
	criteria, err := s.Criteria(ctx, found, preferences)
	res := Apply(found, criteria)
	if err != nil {
		log.Warn().Str(logger.AgentNameField, "selector").Err(err).Msg("no criteria from preferences, ranking by price")
		res.Warnings = append(res.Warnings, "preferences could not be interpreted; options were ranked by price")
	}
	return res
}

// SelectOptions is Select for callers that keep provenance in a function.
func (s *Selector) SelectOptions(ctx context.Context, options []models.Option, categoryOf func(models.Option) models.Category, preferences string) []models.Option {
	found := make([]models.Found, 0, len(options))
	for _, o := range options {
		found = append(found, models.Found{Category: categoryOf(o), Option: o})
	}
	return s.Select(ctx, found, preferences).Options()
}

func (s *Selector) Criteria(ctx context.Context, found []models.Found, preferences string) (Criteria, error) {
	if strings.TrimSpace(preferences) == "" {
		return Criteria{}, nil
	}
	var cats []string
	for _, c := range models.SearchCategories {
		for _, f := range found {
			if f.Category == c && c != models.Weather {
				cats = append(cats, string(c))
				break
			}
		}
	}
	return llm.Generate[Criteria](ctx, s.completer, llm.Request{
		Task:     prompts.TaskSelectorCriteria,
		Template: prompts.SelectorCriteria,
		Inputs: map[string]any{
			"Preferences": preferences,
			"Categories":  strings.Join(cats, ", "),
		},
	})
}

type candidate struct {
	index  int
	option models.Option
	price  float64
	priced bool
	hits   int
}

// Apply is the deterministic part of selection.
func Apply(found []models.Found, c Criteria) Result {
	var (
		res    Result
		byCat  = map[models.Category][]candidate{}
		lowerK []string
	)
	for _, k := range c.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowerK = append(lowerK, k)
		}
	}
	for i, f := range found {
		if f.Category == models.Weather {
			res.Weather = append(res.Weather, f.Option)
			continue
		}
		cand := candidate{index: i, option: f.Option}
		cand.price, cand.priced = Price(f.Option.Text)
		text := strings.ToLower(f.Option.Text)
		for _, k := range lowerK {
			if strings.Contains(text, k) {
				cand.hits++
			}
		}
		byCat[f.Category] = append(byCat[f.Category], cand)
	}

	pick := func(cat models.Category, dir models.Direction, pool []candidate) {
		if len(pool) == 0 {
			return
		}
		best, over := choose(pool, c, cat)
		res.Picks = append(res.Picks, models.Pick{Category: cat, Direction: dir, Option: best.option, OverBudget: over})
		if over {
			ceiling, _ := c.limit(cat)
			res.Warnings = append(res.Warnings, fmt.Sprintf("no %s option fits the budget of %g; picked the best available: %s", label(cat, dir), ceiling, best.option.Text))
		}
	}

	var outbound, inbound []candidate
	for _, cand := range byCat[models.Flight] {
		if DirectionOf(cand.option.Text) == models.Return {
			inbound = append(inbound, cand)
		} else {
			outbound = append(outbound, cand)
		}
	}
	pick(models.Flight, models.Outbound, outbound)
	pick(models.Flight, models.Return, inbound)
	if c.IncludeBus || len(byCat[models.Flight]) == 0 {
		pick(models.Bus, models.NoDirection, byCat[models.Bus])
	}
	pick(models.Car, models.NoDirection, byCat[models.Car])
	pick(models.Hotel, models.NoDirection, byCat[models.Hotel])
	return res
}

// choose applies the budget as a hard filter and ranks what is left. When
// nothing fits, the best unconstrained candidate is returned flagged.
func choose(pool []candidate, c Criteria, cat models.Category) (candidate, bool) {
	ranked := append([]candidate(nil), pool...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.hits != b.hits {
			return a.hits > b.hits
		}
		if a.priced != b.priced {
			return a.priced
		}
		if a.priced && a.price != b.price {
			return a.price < b.price
		}
		return a.index < b.index
	})
	ceiling, limited := c.limit(cat)
	if !limited {
		return ranked[0], false
	}
	for _, cand := range ranked {
		if cand.priced && cand.price <= ceiling {
			return cand, false
		}
	}
	return ranked[0], true
}

// DirectionOf reads the flight direction marker of an option text. Unmarked
// flights count as outbound candidates.
func DirectionOf(text string) models.Direction {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(t, "outbound:"):
		return models.Outbound
	case strings.HasPrefix(t, "return:"):
		return models.Return
	}
	for _, m := range []string{"return:", "return flight", "inbound", "dönüş"} {
		if strings.Contains(t, m) {
			return models.Return
		}
	}
	for _, m := range []string{"outbound", "gidiş"} {
		if strings.Contains(t, m) {
			return models.Outbound
		}
	}
	return models.NoDirection
}

func label(cat models.Category, dir models.Direction) string {
	if dir == models.NoDirection {
		return string(cat)
	}
	return string(dir) + " " + string(cat)
}

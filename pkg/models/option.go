package models

import "strings"

type Category string

const (
	Flight  Category = "flight"
	Car     Category = "car"
	Bus     Category = "bus"
	Hotel   Category = "hotel"
	Weather Category = "weather"
)

// SearchCategories is the fan-out order of the search stage.
var SearchCategories = []Category{Flight, Car, Bus, Hotel, Weather}

func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SearchCategories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

type Direction string

const (
	NoDirection Direction = ""
	Outbound    Direction = "outbound"
	Return      Direction = "return"
)

// Option is one concrete offering found by a search agent.
type Option struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Found keeps the category an option was discovered under.
type Found struct {
	Category Category
	Option   Option
}

// Pick is an option chosen by the selector.
type Pick struct {
	Category   Category  `json:"category"`
	Direction  Direction `json:"direction,omitempty"`
	Option     Option    `json:"option"`
	OverBudget bool      `json:"over_budget,omitempty"`
}

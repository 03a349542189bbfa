package models

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

type TripParameters struct {
	DepartureLocation string `json:"departure_location" label:"departure location" validate:"required"`
	ArrivalLocation   string `json:"arrival_location" label:"arrival location" validate:"required"`
	DepartureDate     string `json:"departure_date" label:"departure date" validate:"required,datetime=2006-01-02"`
	ReturnDate        string `json:"return_date" label:"return date" validate:"required,datetime=2006-01-02"`
}

// Span is an inclusive range of calendar days.
type Span struct {
	Start time.Time
	End   time.Time
}

func (t TripParameters) Span() (Span, error) {
	start, err := time.Parse(DateLayout, t.DepartureDate)
	if err != nil {
		return Span{}, fmt.Errorf("departure date: %w", err)
	}
	end, err := time.Parse(DateLayout, t.ReturnDate)
	if err != nil {
		return Span{}, fmt.Errorf("return date: %w", err)
	}
	if end.Before(start) {
		return Span{}, fmt.Errorf("return date %s is before departure date %s", t.ReturnDate, t.DepartureDate)
	}
	return Span{Start: start, End: end}, nil
}

// Days is the number of calendar days covered, both ends included.
func (s Span) Days() int {
	return int(s.End.Sub(s.Start).Hours()/24) + 1
}

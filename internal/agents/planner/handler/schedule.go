package handler

import (
	"regexp"
	"strconv"
	"time"

	"go-tripplanner/pkg/models"
)

const (
	transfer      = time.Hour
	usable        = 2 * time.Hour
	airportBuffer = 2 * time.Hour
	assumedFlight = 2 * time.Hour
	transitTitle  = "Travel day"
)

// clock matches either a full timestamp (2025-11-03T09:05:00+03:00, with
// optional seconds and offset) or a bare time of day that is not part of one.
var clock = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})[T ]([01]\d|2[0-3]):([0-5]\d)(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?|(?:^|[^\d:T])([01]?\d|2[0-3]):([0-5]\d)\b`)

var windows = map[models.Slot][2]time.Duration{
	models.Morning:   {6 * time.Hour, 12 * time.Hour},
	models.Afternoon: {12 * time.Hour, 18 * time.Hour},
	models.Evening:   {18 * time.Hour, 24 * time.Hour},
}

// leg is a flight reduced to its times of day.
type leg struct {
	option    models.Option
	departure time.Duration
	arrival   time.Duration
}

func parseLeg(o models.Option) (leg, bool) {
	m := clock.FindAllStringSubmatch(o.Text, 2)
	if len(m) == 0 {
		return leg{}, false
	}
	l := leg{option: o, departure: clockTime(m[0])}
	if len(m) > 1 {
		l.arrival = clockTime(m[1])
		if days := dayDiff(m[0][1], m[1][1]); days > 0 {
			l.arrival += time.Duration(days) * 24 * time.Hour
		} else if l.arrival < l.departure {
			l.arrival += 24 * time.Hour
		}
	} else {
		l.arrival = l.departure + assumedFlight
	}
	return l, true
}

func clockTime(m []string) time.Duration {
	hh, mm := m[4], m[5]
	if m[1] != "" {
		hh, mm = m[2], m[3]
	}
	h, _ := strconv.Atoi(hh)
	mins, _ := strconv.Atoi(mm)
	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute
}

// dayDiff is the number of calendar days between two timestamp dates, zero
// when either time had no date.
func dayDiff(from, to string) int {
	if from == "" || to == "" {
		return 0
	}
	a, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return 0
	}
	b, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

func formatClock(d time.Duration) string {
	d %= 24 * time.Hour
	return time.Time{}.Add(d).Format("15:04")
}

// slot is one place in the itinerary, either an activity slot or a transit
// marker when transit leaves no room for activities that day.
type slot struct {
	day     int
	slot    models.Slot
	transit *leg
}

func (s slot) hour() string {
	if s.transit != nil {
		return formatClock(s.transit.departure)
	}
	return string(s.slot)
}

// schedule lays out the slots of every day of the span. Day one keeps a slot
// only if it ends at least transfer+usable after landing; the last day keeps
// a slot only if it starts at least usable+airportBuffer before take off.
func schedule(span models.Span, outbound, inbound *leg) []slot {
	days := span.Days()
	var out []slot
	for day := 1; day <= days; day++ {
		var kept []slot
		for _, s := range models.Slots {
			w := windows[s]
			if day == 1 && outbound != nil && outbound.arrival+transfer+usable > w[1] {
				continue
			}
			if day == days && inbound != nil && w[0]+usable > inbound.departure-airportBuffer {
				continue
			}
			kept = append(kept, slot{day: day, slot: s})
		}
		if len(kept) == 0 {
			t := outbound
			if day == days && inbound != nil {
				t = inbound
			}
			kept = append(kept, slot{day: day, transit: t})
		}
		out = append(out, kept...)
	}
	return out
}

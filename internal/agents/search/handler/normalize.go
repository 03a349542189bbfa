package handler

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"go-tripplanner/pkg/data"
	"go-tripplanner/pkg/models"
)

var (
	urlPattern  = regexp.MustCompile(`https?://[^\s)\]>"']+`)
	listItem    = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	blankLines  = regexp.MustCompile(`\n\s*\n`)
	linkFields  = []string{"link", "url", "booking_url", "deeplink", "image", "image_url", "thumbnail"}
	titleFields = []string{"text", "title", "name", "description"}
)

// Normalize splits a raw tool answer into one Option per distinct offering.
func Normalize(raw string) []models.Option {
	s := data.StripFences(raw)
	if s == "" {
		return nil
	}
	if gjson.Valid(s) {
		return fromJSON(gjson.Parse(s))
	}
	return fromText(s)
}

func fromJSON(r gjson.Result) []models.Option {
	switch {
	case r.IsArray():
		return fromElements(r.Array())
	case r.IsObject():
		// the results are the first non-empty array of objects; arrays of
		// plain values are attributes of the object itself
		var list []gjson.Result
		r.ForEach(func(_, v gjson.Result) bool {
			if elems := v.Array(); v.IsArray() && len(elems) > 0 && elems[0].IsObject() {
				list = elems
				return false
			}
			return true
		})
		if list != nil {
			return fromElements(list)
		}
		if o, ok := fromElement(r); ok {
			return []models.Option{o}
		}
		return nil
	default:
		return fromText(r.String())
	}
}

func fromElements(elems []gjson.Result) []models.Option {
	var out []models.Option
	for _, e := range elems {
		if o, ok := fromElement(e); ok {
			out = append(out, o)
		}
	}
	return out
}

func fromElement(e gjson.Result) (models.Option, bool) {
	if !e.IsObject() {
		text := strings.TrimSpace(e.String())
		return models.Option{Text: text, Link: urlPattern.FindString(text)}, text != ""
	}

	var link string
	for _, f := range linkFields {
		if v := e.Get(f); v.Exists() && v.String() != "" {
			link = v.String()
			break
		}
	}

	var lead string
	for _, f := range titleFields {
		if v := e.Get(f); v.Type == gjson.String && v.String() != "" {
			lead = f
			break
		}
	}

	var parts []string
	if lead != "" {
		parts = append(parts, e.Get(lead).String())
	}
	e.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if key == lead || isLinkField(key) {
			return true
		}
		if val := flatten(v); val != "" {
			parts = append(parts, key+": "+val)
		}
		return true
	})
	text := strings.Join(parts, ", ")
	if link == "" {
		link = urlPattern.FindString(text)
	}
	return models.Option{Text: text, Link: link}, text != ""
}

func flatten(v gjson.Result) string {
	switch {
	case v.IsArray():
		var vals []string
		for _, x := range v.Array() {
			if s := flatten(x); s != "" {
				vals = append(vals, s)
			}
		}
		return strings.Join(vals, "/")
	case v.IsObject():
		var vals []string
		v.ForEach(func(k, x gjson.Result) bool {
			if s := flatten(x); s != "" {
				vals = append(vals, k.String()+" "+s)
			}
			return true
		})
		return strings.Join(vals, " ")
	case v.Type == gjson.Null:
		return ""
	}
	return strings.TrimSpace(v.String())
}

func isLinkField(key string) bool {
	for _, f := range linkFields {
		if f == key {
			return true
		}
	}
	return false
}

// fromText splits list items, or paragraphs when the text has no list.
func fromText(s string) []models.Option {
	var (
		items   []string
		current []string
		listed  bool
	)
	for _, line := range strings.Split(s, "\n") {
		if listItem.MatchString(line) {
			listed = true
			if len(current) > 0 {
				items = append(items, strings.Join(current, " "))
			}
			current = []string{strings.TrimSpace(listItem.ReplaceAllString(line, ""))}
			continue
		}
		if listed && strings.TrimSpace(line) != "" && len(current) > 0 {
			current = append(current, strings.TrimSpace(line))
		}
	}
	if len(current) > 0 {
		items = append(items, strings.Join(current, " "))
	}
	if !listed {
		items = nil
		for _, p := range blankLines.Split(s, -1) {
			items = append(items, strings.Join(strings.Fields(p), " "))
		}
	}

	var out []models.Option
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		out = append(out, models.Option{Text: it, Link: urlPattern.FindString(it)})
	}
	return out
}

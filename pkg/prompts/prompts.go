package prompts

const (
	TaskGuardianExtract  = "guardian.extract"
	TaskSearchPlan       = "search.plan"
	TaskSelectorCriteria = "selector.criteria"
	TaskItinerary        = "planner.itinerary"
)

var (
	GuardianExtract = `
You are a guardian agent that makes sure a traveller has given every detail needed to plan a trip.

Here is the whole conversation so far, oldest first:
{{.Conversation}}

Find the following details. Later messages override earlier ones when the user changes their mind.
	- departure_location: the city the trip starts from
	- arrival_location: the destination city
	- departure_date: the day of the outbound journey, formatted YYYY-MM-DD
	- return_date: the day of the return journey, formatted YYYY-MM-DD
	- preferences: budget, travellers, comfort and any other wishes, copied as the user said them

Leave a field as an empty string when the user has not given it. Never guess a value.

Return only a json object matching this schema:
{{.Schema}}
`

	SearchPlan = `
{{.Instructions}}

You can call only these tools:
{{.Tools}}

Here is the conversation with the traveller, oldest first:
{{.Conversation}}

Your task: "{{.Query}}"

Decide which tool calls are needed to complete the task, using at most {{.MaxCalls}} calls.
Fill the arguments of each call following the tool's input schema.
For flights set "direction" to "outbound" for the journey to the destination and "return" for the journey back; leave it empty otherwise.

Return only a json object matching this schema:
{{.Schema}}
`

	SelectorCriteria = `
You help pick one travel option per category for a traveller.

The traveller's preferences and budget: "{{.Preferences}}"
Categories with options: {{.Categories}}

Turn the preferences into selection criteria:
	- limits: a maximum price per category ({{.Categories}}) only when the traveller gave an explicit budget ceiling for it, in the currency the traveller used
	- keywords: short words that a matching option's description would contain (e.g. "economy", "family", "breakfast")
	- include_bus: true only if the traveller wants to travel by bus

Return only a json object matching this schema:
{{.Schema}}
`

	Itinerary = `
You are a travel planner writing a day by day itinerary for a trip to {{.Destination}}.

Traveller preferences and budget: "{{.Preferences}}"

Selected travel options:
{{.Options}}

Weather forecast:
{{.Weather}}

Fill exactly these slots, one item per slot, keeping day_number and hour as given:
{{.Slots}}

For every slot suggest one activity and where to eat nearby. Keep activity_title short and put the details and food suggestion in activity_content.

Return only a json object matching this schema:
{{.Schema}}
`

	Clarification = `To plan your trip I still need your {{.Missing}}. Could you tell me {{if .Single}}it{{else}}them{{end}}?`

	TripTooLong = `I can plan trips of up to {{.MaxDays}} days. Could you give me a return date within {{.MaxDays}} days of your departure date?`
)

// SearchQueries are the task texts handed to each search agent, keyed by
// category.
var SearchQueries = map[string]string{
	"flight":  `Find flights from {{.DepartureLocation}} to {{.ArrivalLocation}} on {{.DepartureDate}} and back from {{.ArrivalLocation}} to {{.DepartureLocation}} on {{.ReturnDate}}.{{if .Preferences}} Preferences: {{.Preferences}}{{end}}`,
	"car":     `Find rental cars in {{.ArrivalLocation}} picked up on {{.DepartureDate}} and returned on {{.ReturnDate}}.{{if .Preferences}} Preferences: {{.Preferences}}{{end}}`,
	"bus":     `Find buses from {{.DepartureLocation}} to {{.ArrivalLocation}} on {{.DepartureDate}}.{{if .Preferences}} Preferences: {{.Preferences}}{{end}}`,
	"hotel":   `Find hotels in {{.ArrivalLocation}} with check-in on {{.DepartureDate}} and check-out on {{.ReturnDate}}.{{if .Preferences}} Preferences: {{.Preferences}}{{end}}`,
	"weather": `Get the weather forecast for {{.ArrivalLocation}} from {{.DepartureDate}} to {{.ReturnDate}}.`,
}

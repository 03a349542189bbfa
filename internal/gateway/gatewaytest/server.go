// Package gatewaytest runs an in-memory MCP travel tool server for tests.
package gatewaytest

import (
	"context"
	"errors"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"go-tripplanner/internal/gateway"
)

// Args is the argument object every fake tool accepts.
type Args struct {
	Query       string `json:"query,omitempty"`
	Direction   string `json:"direction,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	Date        string `json:"date,omitempty"`
	City        string `json:"city,omitempty"`
	CheckIn     string `json:"check_in,omitempty"`
	CheckOut    string `json:"check_out,omitempty"`
}

type Handler func(ctx context.Context, args Args) (string, error)

var ErrConnect = errors.New("gatewaytest: connection refused")

type Server struct {
	mu           sync.Mutex
	handlers     map[string]Handler
	order        []string
	calls        map[string][]Args
	connects     int
	failConnects int
}

// NewServer returns a server exposing the five travel tools with canned
// Istanbul–Ankara answers.
func NewServer() *Server {
	s := &Server{handlers: map[string]Handler{}, calls: map[string][]Args{}}
	s.Handle("flight_search", Flights)
	s.Handle("car_search", Static(CarsText))
	s.Handle("bus_search", Static(BusesJSON))
	s.Handle("hotel_search", Static(HotelsJSON))
	s.Handle("flight_weather_forecast", Static(WeatherText))
	return s
}

func (s *Server) Handle(tool string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[tool]; !ok {
		s.order = append(s.order, tool)
	}
	s.handlers[tool] = h
}

// FailConnects makes the next n connection attempts fail.
func (s *Server) FailConnects(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failConnects = n
}

func (s *Server) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

func (s *Server) Calls(tool string) []Args {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Args(nil), s.calls[tool]...)
}

// Connector starts a fresh server session for each connection attempt.
func (s *Server) Connector() gateway.Connector {
	return func(ctx context.Context) (mcp.Transport, error) {
		s.mu.Lock()
		s.connects++
		if s.failConnects > 0 {
			s.failConnects--
			s.mu.Unlock()
			return nil, ErrConnect
		}
		server := mcp.NewServer(&mcp.Implementation{Name: "fake-travel", Version: "v0.0.1"}, nil)
		for _, name := range s.order {
			s.register(server, name)
		}
		s.mu.Unlock()

		clientTransport, serverTransport := mcp.NewInMemoryTransports()
		if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
			return nil, err
		}
		return clientTransport, nil
	}
}

func (s *Server) register(server *mcp.Server, name string) {
	mcp.AddTool(server, &mcp.Tool{Name: name, Description: "fake " + name},
		func(ctx context.Context, _ *mcp.CallToolRequest, args Args) (*mcp.CallToolResult, any, error) {
			s.mu.Lock()
			s.calls[name] = append(s.calls[name], args)
			h := s.handlers[name]
			s.mu.Unlock()

			text, err := h(ctx, args)
			if err != nil {
				return &mcp.CallToolResult{
					IsError: true,
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				}, nil, nil
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
		})
}

func Static(text string) Handler {
	return func(context.Context, Args) (string, error) { return text, nil }
}

func Failing(msg string) Handler {
	return func(context.Context, Args) (string, error) { return "", errors.New(msg) }
}

// Blocking waits until the call is cancelled.
func Blocking() Handler {
	return func(ctx context.Context, _ Args) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
}

func Flights(_ context.Context, args Args) (string, error) {
	if args.Direction == "return" {
		return ReturnFlightsJSON, nil
	}
	return OutboundFlightsJSON, nil
}

const (
	OutboundFlightsJSON = `[
  {"flight": "TK2120", "from": "IST", "to": "ESB", "date": "2025-11-03", "departure": "09:05", "arrival": "10:20", "cabin": "economy", "price": "1.450 TL"},
  {"flight": "PC2650", "from": "SAW", "to": "ESB", "date": "2025-11-03", "departure": "13:40", "arrival": "14:50", "cabin": "economy", "price": "980 TL"},
  {"flight": "TK2130", "from": "IST", "to": "ESB", "date": "2025-11-03", "departure": "18:00", "arrival": "19:15", "cabin": "business", "price": "4.300 TL"}
]`
	ReturnFlightsJSON = `[
  {"flight": "TK2149", "from": "ESB", "to": "IST", "date": "2025-11-10", "departure": "20:30", "arrival": "21:45", "cabin": "economy", "price": "1.390 TL"},
  {"flight": "PC2667", "from": "ESB", "to": "SAW", "date": "2025-11-10", "departure": "07:15", "arrival": "08:25", "cabin": "economy", "price": "870 TL"}
]`
	CarsText = `1. Renault Clio, economy, manual - 1.100 TL/day - pickup Esenboğa Airport
2. Toyota Corolla, compact, automatic, child seat available - 1.650 TL/day - pickup Esenboğa Airport
3. Volvo XC60, SUV, automatic - 3.900 TL/day - pickup Kızılay`
	BusesJSON = `{"results": [
  {"company": "Metro Turizm", "route": "Istanbul - Ankara", "departure": "23:30", "price": "650 TL"},
  {"company": "Kamil Koç", "route": "Istanbul - Ankara", "departure": "08:00", "price": "720 TL"}
]}`
	HotelsJSON = `[
  {"name": "Ankara Palas Boutique", "stars": 4, "price": "3.200 TL/night", "family_rooms": "yes", "image": "https://img.example.com/palas.jpg"},
  {"name": "Kızılay Budget Inn", "stars": 2, "price": "1.100 TL/night", "family_rooms": "yes", "image": "https://img.example.com/budget-inn.jpg"},
  {"name": "JW Marriott Ankara", "stars": 5, "price": "7.800 TL/night", "image": "https://img.example.com/jw.jpg"}
]`
	WeatherText = `Ankara 2025-11-03 to 2025-11-10: 7-14°C, light rain expected on 2025-11-05`
)

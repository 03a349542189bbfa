package handler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	search "go-tripplanner/internal/agents/search/handler"
	"go-tripplanner/internal/gateway"
	"go-tripplanner/internal/gateway/gatewaytest"
	"go-tripplanner/pkg/llm"
	"go-tripplanner/pkg/memory/buffer"
	"go-tripplanner/pkg/models"
)

func handoff() Handoff {
	var conv buffer.Conversation
	conv.AddUser("I want to travel from Istanbul to Ankara, leaving 2025-11-03 and coming back 2025-11-10. preferences: budget economy, one child")
	return Handoff{
		Conversation: conv,
		Trip: models.TripParameters{
			DepartureLocation: "Istanbul",
			ArrivalLocation:   "Ankara",
			DepartureDate:     "2025-11-03",
			ReturnDate:        "2025-11-10",
		},
		Preferences: "budget economy, one child",
	}
}

func tools(srv *gatewaytest.Server) ToolsFactory {
	return func(models.Category) search.ToolCaller {
		return gateway.New(srv.Connector(), gateway.WithBackoffBase(time.Millisecond))
	}
}

func contentsWith(contents []models.Option, substr string) int {
	n := 0
	for _, o := range contents {
		if strings.Contains(o.Text, substr) {
			n++
		}
	}
	return n
}

func TestRunIstanbulToAnkara(t *testing.T) {
	srv := gatewaytest.NewServer()
	root := actor.NewActorSystem().Root
	h := New(root, llm.NewMock(), tools(srv))

	res := h.Run(context.Background(), handoff())

	require.Len(t, res.Contents, 4)
	assert.True(t, strings.HasPrefix(res.Contents[0].Text, "Outbound: "), res.Contents[0].Text)
	assert.True(t, strings.HasPrefix(res.Contents[1].Text, "Return: "), res.Contents[1].Text)
	assert.Contains(t, res.Contents[2].Text, "Renault Clio")
	assert.Contains(t, res.Contents[3].Text, "Kızılay Budget Inn")
	assert.Equal(t, "https://img.example.com/budget-inn.jpg", res.Contents[3].Link)
	assert.Zero(t, contentsWith(res.Contents, "Metro Turizm"), "bus is not picked when flights exist")

	require.NotNil(t, res.Plan)
	require.False(t, res.Plan.IsText())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, res.Plan.Days())
	assert.Empty(t, res.Warnings)

	for _, tool := range []string{"flight_search", "car_search", "bus_search", "hotel_search", "flight_weather_forecast"} {
		assert.NotEmpty(t, srv.Calls(tool), tool)
	}
}

func TestRunCarSearchFailing(t *testing.T) {
	srv := gatewaytest.NewServer()
	srv.Handle("car_search", gatewaytest.Failing("car provider down"))
	h := New(actor.NewActorSystem().Root, llm.NewMock(), tools(srv))

	res := h.Run(context.Background(), handoff())

	require.Len(t, res.Contents, 3)
	assert.Equal(t, 1, contentsWith(res.Contents, "Outbound: "))
	assert.Equal(t, 1, contentsWith(res.Contents, "Return: "))
	assert.Equal(t, 1, contentsWith(res.Contents, "Kızılay"))
	assert.Zero(t, contentsWith(res.Contents, "TL/day"))
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "car provider down")
	assert.Len(t, res.Plan.Days(), 8)
}

func TestRunStages(t *testing.T) {
	var (
		mu     sync.Mutex
		stages []models.State
	)
	h := New(actor.NewActorSystem().Root, llm.NewMock(), tools(gatewaytest.NewServer()), WithStageHook(func(s models.State) {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, s)
	}))

	h.Run(context.Background(), handoff())

	assert.Equal(t, []models.State{models.AwaitingDelegation, models.Searching, models.Reducing, models.Planning, models.Done}, stages)
}

func TestRunSlowBranchDoesNotCancelOthers(t *testing.T) {
	srv := gatewaytest.NewServer()
	srv.Handle("hotel_search", gatewaytest.Blocking())
	h := New(actor.NewActorSystem().Root, llm.NewMock(), tools(srv))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	res := h.Run(ctx, handoff())

	assert.Zero(t, contentsWith(res.Contents, "TL/night"))
	assert.Equal(t, 1, contentsWith(res.Contents, "Outbound: "))
	assert.Equal(t, 1, contentsWith(res.Contents, "Renault Clio"))
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "hotel search")
}

func TestRunUnreachableToolServer(t *testing.T) {
	srv := gatewaytest.NewServer()
	srv.FailConnects(1000)
	h := New(actor.NewActorSystem().Root, llm.NewMock(), tools(srv))

	res := h.Run(context.Background(), handoff())

	assert.Empty(t, res.Contents)
	assert.NotNil(t, res.Contents)
	assert.Len(t, res.Warnings, len(models.SearchCategories))
	assert.Len(t, res.Plan.Days(), 8)
}

func TestRunWithSubsetOfCapabilities(t *testing.T) {
	srv := gatewaytest.NewServer()
	caps := search.DefaultCapabilities()
	delete(caps, models.Car)
	delete(caps, models.Bus)
	h := New(actor.NewActorSystem().Root, llm.NewMock(), tools(srv), WithCapabilities(caps))

	res := h.Run(context.Background(), handoff())

	assert.Empty(t, srv.Calls("car_search"))
	assert.Len(t, res.Contents, 3)
}

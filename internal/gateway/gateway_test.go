package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tripplanner/internal/gateway"
	"go-tripplanner/internal/gateway/gatewaytest"
)

func newGateway(srv *gatewaytest.Server, opts ...gateway.Option) *gateway.Gateway {
	opts = append([]gateway.Option{gateway.WithBackoffBase(time.Millisecond)}, opts...)
	return gateway.New(srv.Connector(), opts...)
}

func TestOpenListInvoke(t *testing.T) {
	ctx := context.Background()
	srv := gatewaytest.NewServer()
	gw := newGateway(srv)
	defer gw.Close()

	require.NoError(t, gw.Open(ctx))

	tools, err := gw.ListTools(ctx)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"flight_search", "car_search", "bus_search", "hotel_search", "flight_weather_forecast"}, names)

	res, err := gw.Invoke(ctx, "flight_search", json.RawMessage(`{"origin":"IST","destination":"ESB","direction":"return"}`))
	require.NoError(t, err)
	require.Len(t, res.Texts, 1)
	assert.JSONEq(t, gatewaytest.ReturnFlightsJSON, res.Texts[0])

	calls := srv.Calls("flight_search")
	require.Len(t, calls, 1)
	assert.Equal(t, "return", calls[0].Direction)
	assert.Equal(t, "ESB", calls[0].Destination)
}

func TestOpenReusesSession(t *testing.T) {
	ctx := context.Background()
	srv := gatewaytest.NewServer()
	gw := newGateway(srv)
	defer gw.Close()

	require.NoError(t, gw.Open(ctx))
	require.NoError(t, gw.Open(ctx))
	assert.Equal(t, 1, srv.Connects())

	first, err := gw.ListTools(ctx)
	require.NoError(t, err)
	srv.Handle("train_search", gatewaytest.Static("none"))
	second, err := gw.ListTools(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second, "catalog is cached for the session")
}

func TestOpenRetriesThenSucceeds(t *testing.T) {
	srv := gatewaytest.NewServer()
	srv.FailConnects(2)
	gw := newGateway(srv)
	defer gw.Close()

	require.NoError(t, gw.Open(context.Background()))
	assert.Equal(t, 3, srv.Connects())
}

func TestOpenRetryExhausted(t *testing.T) {
	srv := gatewaytest.NewServer()
	srv.FailConnects(10)
	gw := newGateway(srv, gateway.WithMaxRetries(2), gateway.WithName("travel"))

	err := gw.Open(context.Background())
	var connErr *gateway.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 3, connErr.Attempts)
	assert.Equal(t, "travel", connErr.Server)
	assert.ErrorIs(t, err, gatewaytest.ErrConnect)
	assert.Equal(t, 3, srv.Connects())
}

func TestNotOpen(t *testing.T) {
	gw := newGateway(gatewaytest.NewServer())

	_, err := gw.ListTools(context.Background())
	assert.ErrorIs(t, err, gateway.ErrNotOpen)

	_, err = gw.Invoke(context.Background(), "car_search", nil)
	var invErr *gateway.ToolInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.ErrorIs(t, err, gateway.ErrNotOpen)
}

func TestInvokeToolFailure(t *testing.T) {
	ctx := context.Background()
	srv := gatewaytest.NewServer()
	srv.Handle("car_search", gatewaytest.Failing("rental provider unavailable"))
	gw := newGateway(srv)
	defer gw.Close()
	require.NoError(t, gw.Open(ctx))

	_, err := gw.Invoke(ctx, "car_search", json.RawMessage(`{"city":"Ankara"}`))
	var invErr *gateway.ToolInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "car_search", invErr.Tool)
	assert.Contains(t, err.Error(), "rental provider unavailable")
	assert.False(t, gateway.IsTimeout(err))
}

func TestInvokeBadArguments(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(gatewaytest.NewServer())
	defer gw.Close()
	require.NoError(t, gw.Open(ctx))

	_, err := gw.Invoke(ctx, "car_search", json.RawMessage(`["not","an","object"]`))
	var invErr *gateway.ToolInvocationError
	assert.ErrorAs(t, err, &invErr)
}

func TestInvokeTimeout(t *testing.T) {
	ctx := context.Background()
	srv := gatewaytest.NewServer()
	srv.Handle("hotel_search", gatewaytest.Blocking())
	gw := newGateway(srv, gateway.WithCallTimeout(50*time.Millisecond))
	defer gw.Close()
	require.NoError(t, gw.Open(ctx))

	_, err := gw.Invoke(ctx, "hotel_search", json.RawMessage(`{"city":"Ankara"}`))
	require.Error(t, err)
	assert.True(t, gateway.IsTimeout(err))
	var te *gateway.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 50*time.Millisecond, te.After)
}

func TestCloseIdempotent(t *testing.T) {
	ctx := context.Background()
	srv := gatewaytest.NewServer()
	gw := newGateway(srv)

	require.NoError(t, gw.Close())
	require.NoError(t, gw.Open(ctx))
	_ = gw.Close()
	require.NoError(t, gw.Close())

	_, err := gw.ListTools(ctx)
	assert.ErrorIs(t, err, gateway.ErrNotOpen)

	require.NoError(t, gw.Open(ctx))
	assert.Equal(t, 2, srv.Connects())
	gw.Close()
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	supervisor "go-tripplanner/internal/agents/supervisor/handler"
	"go-tripplanner/pkg/llm"
	"go-tripplanner/pkg/logger"
	"go-tripplanner/pkg/memory/buffer"
	"go-tripplanner/pkg/models"
	"go-tripplanner/pkg/prompts"
	"go-tripplanner/pkg/template"
)

// Delegate runs the planning pipeline once the trip is complete.
type Delegate interface {
	Run(ctx context.Context, hand supervisor.Handoff) models.OutputResponse
}

const DefaultMaxTripDays = 30

// ValidationError lists the trip parameters that are missing or unusable.
// MaxDays is set when the dates are valid but the trip is too long to plan.
type ValidationError struct {
	Missing []string
	MaxDays int
}

func (e *ValidationError) Error() string {
	if e.MaxDays > 0 {
		return fmt.Sprintf("trip is longer than %d days: %s", e.MaxDays, strings.Join(e.Missing, ", "))
	}
	return "missing trip parameters: " + strings.Join(e.Missing, ", ")
}

type extraction struct {
	DepartureLocation string `json:"departure_location"`
	ArrivalLocation   string `json:"arrival_location"`
	DepartureDate     string `json:"departure_date"`
	ReturnDate        string `json:"return_date"`
	Preferences       string `json:"preferences"`
}

type Outcome struct {
	State    models.State
	Trip     models.TripParameters
	Missing  []string
	Response models.OutputResponse
}

type Handler struct {
	completer   llm.Completer
	delegate    Delegate
	validate    *validator.Validate
	maxTripDays int
}

type Option func(*Handler)

// WithMaxTripDays bounds the number of calendar days a plan may cover.
func WithMaxTripDays(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxTripDays = n
		}
	}
}

func New(completer llm.Completer, delegate Delegate, opts ...Option) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	h := &Handler{
		completer:   completer,
		delegate:    delegate,
		validate:    v,
		maxTripDays: DefaultMaxTripDays,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle re-reads the trip from the whole conversation. The pipeline is only
// started when every parameter is present; otherwise the user is asked for
// exactly what is missing.
func (h *Handler) Handle(ctx context.Context, conv buffer.Conversation) Outcome {
	l := log.With().Str(logger.AgentNameField, "guardian").Logger()

	ext, err := llm.Generate[extraction](ctx, h.completer, llm.Request{
		Task:     prompts.TaskGuardianExtract,
		Template: prompts.GuardianExtract,
		Inputs:   map[string]any{"Conversation": conv.Flatten()},
	})
	if err != nil {
		l.Warn().Err(err).Msg("trip extraction failed")
	}
	trip := models.TripParameters{
		DepartureLocation: strings.TrimSpace(ext.DepartureLocation),
		ArrivalLocation:   strings.TrimSpace(ext.ArrivalLocation),
		DepartureDate:     strings.TrimSpace(ext.DepartureDate),
		ReturnDate:        strings.TrimSpace(ext.ReturnDate),
	}

	var verr *ValidationError
	if err := h.Validate(trip); errors.As(err, &verr) {
		l.Info().Strs("missing", verr.Missing).Str(logger.StageField, string(models.Collecting)).Msg("asking for trip details")
		return Outcome{
			State:   models.Collecting,
			Trip:    trip,
			Missing: verr.Missing,
			Response: models.OutputResponse{
				Contents: []models.Option{},
				Message:  clarification(verr),
			},
		}
	}

	l.Info().Str(logger.StageField, string(models.Delegating)).Msg("trip complete, handing off")
	return Outcome{
		State: models.Delegating,
		Trip:  trip,
		Response: h.delegate.Run(ctx, supervisor.Handoff{
			Conversation: conv,
			Trip:         trip,
			Preferences:  strings.TrimSpace(ext.Preferences),
		}),
	}
}

// Validate reports every missing or malformed parameter, a return date that
// comes before the departure date, and a trip longer than the day limit.
func (h *Handler) Validate(trip models.TripParameters) error {
	var missing []string
	if err := h.validate.Struct(trip); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate trip: %w", err)
		}
		for _, fe := range fieldErrs {
			missing = appendOnce(missing, fe.Field())
		}
	}
	if len(missing) == 0 {
		dep, _ := time.Parse(models.DateLayout, trip.DepartureDate)
		ret, _ := time.Parse(models.DateLayout, trip.ReturnDate)
		if ret.Before(dep) {
			missing = append(missing, "return date")
		} else if days := int(ret.Sub(dep).Hours()/24) + 1; days > h.maxTripDays {
			return &ValidationError{Missing: []string{"return date"}, MaxDays: h.maxTripDays}
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

func appendOnce(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}

func clarification(verr *ValidationError) string {
	if verr.MaxDays > 0 {
		msg, err := template.Parse(prompts.TripTooLong, map[string]any{"MaxDays": verr.MaxDays})
		if err == nil {
			return msg
		}
	}
	missing := verr.Missing
	names := missing[0]
	if n := len(missing); n > 1 {
		names = strings.Join(missing[:n-1], ", ") + " and " + missing[n-1]
	}
	msg, err := template.Parse(prompts.Clarification, map[string]any{"Missing": names, "Single": len(missing) == 1})
	if err != nil {
		return "Please tell me your " + names + "."
	}
	return msg
}

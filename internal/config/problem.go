// Package config loads and validates the two configuration surfaces of
// the service: the problem definition (config.json) consumed by the
// solver, and the server settings (config.yml).
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Durations are in minutes.
const (
	DefaultServiceTime  = 15
	DefaultMaxRouteTime = 720
	DefaultSlackTime    = 10
)

// ValidationError reports a missing required key or a present key of the
// wrong type or value. The message names the offending key.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid config: key %q: %s", e.Key, e.Reason)
}

// Problem is the raw problem definition. Optional keys are pointers so a
// missing key can fall back to its default; the break keys must be given
// together.
type Problem struct {
	NumVehicles    int      `json:"num_vehicles" validate:"required,gt=0"`
	Starts         []int    `json:"starts" validate:"required"`
	Ends           []int    `json:"ends" validate:"required"`
	Locations      []string `json:"locations" validate:"required,min=1"`
	BreakTime      *int     `json:"break_time" validate:"omitempty,gt=0"`
	BreakStartTime *int     `json:"break_start_time" validate:"omitempty,gte=0"`
	ServiceTime    *int     `json:"service_time" validate:"omitempty,gte=0"`
	MaxRouteTime   *int     `json:"max_route_time" validate:"omitempty,gt=0"`
	SlackTime      *int     `json:"slack_time" validate:"omitempty,gte=0"`
}

// ResolvedProblem is a Problem with defaults applied.
type ResolvedProblem struct {
	NumVehicles  int
	Starts       []int
	Ends         []int
	Locations    []string
	ServiceTime  int
	MaxRouteTime int
	SlackTime    int

	HasBreak       bool
	BreakTime      int
	BreakStartTime int
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names by their json key, the way callers wrote them.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadProblem reads and validates a problem definition file.
func LoadProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProblem(data)
}

// ParseProblem decodes and validates a problem definition. All four
// required keys must be present; optional keys, when present, must match
// their declared type.
func ParseProblem(data []byte) (*Problem, error) {
	var p Problem
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return nil, &ValidationError{Key: te.Field, Reason: fmt.Sprintf("expected %s, got %s", te.Type, te.Value)}
		}
		return nil, &ValidationError{Reason: err.Error()}
	}
	if err := validate.Struct(&p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return nil, &ValidationError{Key: fe.Field(), Reason: "missing required key"}
			}
			return nil, &ValidationError{Key: fe.Field(), Reason: "failed " + fe.Tag() + " check"}
		}
		return nil, &ValidationError{Reason: err.Error()}
	}
	if (p.BreakTime == nil) != (p.BreakStartTime == nil) {
		missing := "break_time"
		if p.BreakStartTime == nil {
			missing = "break_start_time"
		}
		return nil, &ValidationError{Key: missing, Reason: "break_time and break_start_time must be given together"}
	}
	return &p, nil
}

// Resolve applies the documented defaults to the optional keys.
func (p *Problem) Resolve() ResolvedProblem {
	r := ResolvedProblem{
		NumVehicles:  p.NumVehicles,
		Starts:       p.Starts,
		Ends:         p.Ends,
		Locations:    p.Locations,
		ServiceTime:  DefaultServiceTime,
		MaxRouteTime: DefaultMaxRouteTime,
		SlackTime:    DefaultSlackTime,
	}
	if p.ServiceTime != nil {
		r.ServiceTime = *p.ServiceTime
	}
	if p.MaxRouteTime != nil {
		r.MaxRouteTime = *p.MaxRouteTime
	}
	if p.SlackTime != nil {
		r.SlackTime = *p.SlackTime
	}
	if p.BreakTime != nil && p.BreakStartTime != nil {
		r.HasBreak = true
		r.BreakTime = *p.BreakTime
		r.BreakStartTime = *p.BreakStartTime
	}
	return r
}

package storecheck

import (
	"fmt"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// StepKind is the action a Step performs.
type StepKind string

const (
	StepNavigate      StepKind = "navigate"
	StepClick         StepKind = "click"
	StepFill          StepKind = "fill"
	StepExpectVisible StepKind = "expect_visible"
	StepExpectEnabled StepKind = "expect_enabled"
	StepExpectText    StepKind = "expect_text"
	StepExpectURL     StepKind = "expect_url"
	StepCheckpoint    StepKind = "checkpoint"
)

// Duration is a time.Duration written as a Go duration string in flow files.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// WaitCondition is what a navigation waits for before the next step runs.
type WaitCondition struct {
	Selector    *Locator `yaml:"selector,omitempty"`
	NetworkIdle bool     `yaml:"network_idle,omitempty"`
}

// Step is one action of a flow. Which fields are read depends on Kind:
// navigate uses Path and Wait, click uses Target, fill uses Target and Value,
// expect_text uses Target and Value, expect_url uses Pattern, and checkpoint
// uses Name as the artifact label. Path and Value may reference credentials
// with ${email}, ${password}, ${first_name}, ${last_name}, ${store_name},
// ${seed_email}, ${seed_password} and ${base_url}.
type Step struct {
	Name    string        `yaml:"name,omitempty"`
	Kind    StepKind      `yaml:"kind"`
	Path    string        `yaml:"path,omitempty"`
	Wait    WaitCondition `yaml:"wait,omitempty"`
	Target  Locator       `yaml:"target,omitempty"`
	Value   string        `yaml:"value,omitempty"`
	Pattern string        `yaml:"pattern,omitempty"`
	Timeout Duration      `yaml:"timeout,omitempty"`
}

func Navigate(path string, wait WaitCondition) Step {
	return Step{Name: "navigate " + path, Kind: StepNavigate, Path: path, Wait: wait}
}

func Click(target Locator) Step {
	return Step{Name: "click " + target.String(), Kind: StepClick, Target: target}
}

func Fill(target Locator, value string) Step {
	return Step{Name: "fill " + target.String(), Kind: StepFill, Target: target, Value: value}
}

func ExpectVisible(target Locator) Step {
	return Step{Name: "expect visible " + target.String(), Kind: StepExpectVisible, Target: target}
}

func ExpectEnabled(target Locator) Step {
	return Step{Name: "expect enabled " + target.String(), Kind: StepExpectEnabled, Target: target}
}

func ExpectText(target Locator, text string) Step {
	return Step{Name: fmt.Sprintf("expect %s contains %q", target, text), Kind: StepExpectText, Target: target, Value: text}
}

func ExpectURL(pattern string) Step {
	return Step{Name: "expect url " + pattern, Kind: StepExpectURL, Pattern: pattern}
}

func Checkpoint(label string) Step {
	return Step{Name: label, Kind: StepCheckpoint}
}

// NetworkIdle waits for the page to stop issuing requests.
func NetworkIdle() WaitCondition { return WaitCondition{NetworkIdle: true} }

// Present waits for target to become visible.
func Present(target Locator) WaitCondition { return WaitCondition{Selector: &target} }

// WithTimeout overrides the configured default timeout for s.
func (s Step) WithTimeout(d time.Duration) Step {
	s.Timeout = Duration(d)
	return s
}

// Flow is a named, ordered step list. Flows are built once and never
// modified while a run executes them.
type Flow struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Checkpoints lists the checkpoint labels in order.
func (f Flow) Checkpoints() []string {
	var out []string
	for _, s := range f.Steps {
		if s.Kind == StepCheckpoint {
			out = append(out, s.Name)
		}
	}
	return out
}

// Validate rejects flows a run could not execute to the end even against a
// perfectly behaving target.
func (f Flow) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidFlow)
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("%w %s: no steps", ErrInvalidFlow, f.Name)
	}
	if f.Steps[0].Kind != StepNavigate {
		return fmt.Errorf("%w %s: first step must be %s, got %s", ErrInvalidFlow, f.Name, StepNavigate, f.Steps[0].Kind)
	}

	labels := make(map[string]bool)
	for i, s := range f.Steps {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w %s: step %d: %v", ErrInvalidFlow, f.Name, i+1, err)
		}
		if s.Kind == StepCheckpoint {
			key := cleanLabel(s.Name)
			if labels[key] {
				return fmt.Errorf("%w %s: step %d: duplicate checkpoint %q", ErrInvalidFlow, f.Name, i+1, s.Name)
			}
			labels[key] = true
		}
	}
	return nil
}

func (s Step) validate() error {
	if s.Timeout < 0 {
		return fmt.Errorf("negative timeout")
	}
	switch s.Kind {
	case StepNavigate:
		if s.Path == "" {
			return fmt.Errorf("navigate: missing path")
		}
		if s.Wait.Selector != nil {
			return s.Wait.Selector.validate()
		}
		return nil
	case StepClick, StepFill, StepExpectVisible, StepExpectEnabled:
		return s.Target.validate()
	case StepExpectText:
		if s.Value == "" {
			return fmt.Errorf("expect_text: missing value")
		}
		return s.Target.validate()
	case StepExpectURL:
		if s.Pattern == "" {
			return fmt.Errorf("expect_url: missing pattern")
		}
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return fmt.Errorf("expect_url: %w", err)
		}
		return nil
	case StepCheckpoint:
		if s.Name == "" {
			return fmt.Errorf("checkpoint: missing name")
		}
		return nil
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
}

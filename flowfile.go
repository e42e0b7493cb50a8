package storecheck

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FlowFile is the YAML document accepted by LoadFlowFile:
//
//	flows:
//	  - name: home
//	    steps:
//	      - kind: navigate
//	        path: /
//	        wait: {network_idle: true}
//	      - kind: expect_visible
//	        target: {role: heading, name: Welcome}
//	      - kind: checkpoint
//	        name: home
type FlowFile struct {
	Flows []Flow `yaml:"flows"`
}

// LoadFlowFile reads and validates the flows in path.
func LoadFlowFile(path string) ([]Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow file: %w", err)
	}
	flows, err := ParseFlows(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return flows, nil
}

// ParseFlows decodes a FlowFile document. Unknown keys are rejected so a
// misspelt field fails loudly instead of silently dropping a step option.
func ParseFlows(data []byte) ([]Flow, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file FlowFile
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode flows: %w", err)
	}
	if len(file.Flows) == 0 {
		return nil, fmt.Errorf("%w: no flows defined", ErrInvalidFlow)
	}

	seen := make(map[string]bool, len(file.Flows))
	for i := range file.Flows {
		f := &file.Flows[i]
		for j := range f.Steps {
			if f.Steps[j].Name == "" {
				f.Steps[j].Name = defaultStepName(f.Steps[j])
			}
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: duplicate flow %q", ErrInvalidFlow, f.Name)
		}
		seen[f.Name] = true
	}
	return file.Flows, nil
}

// defaultStepName names a step the way the step constructors do.
func defaultStepName(s Step) string {
	switch s.Kind {
	case StepNavigate:
		return Navigate(s.Path, s.Wait).Name
	case StepClick:
		return Click(s.Target).Name
	case StepFill:
		return Fill(s.Target, s.Value).Name
	case StepExpectVisible:
		return ExpectVisible(s.Target).Name
	case StepExpectEnabled:
		return ExpectEnabled(s.Target).Name
	case StepExpectText:
		return ExpectText(s.Target, s.Value).Name
	case StepExpectURL:
		return ExpectURL(s.Pattern).Name
	default:
		return ""
	}
}

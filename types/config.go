package types

import (
	"bytes"
	"encoding/json"
)

// FrameworkConfig is the document declared by framework_conf.json.
// Only the fields that feed variable substitution are modelled; anything else
// in the file is ignored.
type FrameworkConfig struct {
	Credentials  *Credentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	TargetSystem *string      `json:"target_system,omitempty" yaml:"target_system,omitempty"`
	HTTPS        *FlexString  `json:"https,omitempty" yaml:"https,omitempty"`
}

// Credentials holds the login pair handed to tests.
type Credentials struct {
	Username *string `json:"username,omitempty" yaml:"username,omitempty"`
	Password *string `json:"password,omitempty" yaml:"password,omitempty"`
}

// FlexString decodes from any JSON value. Strings are kept as-is; any other
// value keeps its JSON text (true, 1, ...) so it can be passed as a process
// argument.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*s = FlexString(compact.String())
	return nil
}

// SuiteConfig is the document declared by suite_conf.json. Suites have no
// fixed schema; the decoded object is kept as-is.
type SuiteConfig struct {
	Description string         `yaml:"description,omitempty"`
	Document    map[string]any `yaml:"document,omitempty"`
}

func (c *SuiteConfig) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	c.Document = doc
	if d, ok := doc["description"].(string); ok {
		c.Description = d
	}
	return nil
}

// TestCaseConfig is the document declared by test_conf.json.
type TestCaseConfig struct {
	// Tests is nil when the key is missing from the document.
	Tests []TestEntry `json:"tests" yaml:"tests"`
}

// HasTests reports whether the config declares a tests list at all.
func (c *TestCaseConfig) HasTests() bool {
	return c != nil && c.Tests != nil
}

// TestEntry is a single program invocation inside a test case.
type TestEntry struct {
	Program string   `json:"program" yaml:"program"`
	Args    []string `json:"args" yaml:"args"`
}

// Runnable reports whether both program and args were declared.
func (e TestEntry) Runnable() bool {
	return e.Program != "" && e.Args != nil
}

// Command returns the full argument vector, program first.
func (e TestEntry) Command() []string {
	return append([]string{e.Program}, e.Args...)
}

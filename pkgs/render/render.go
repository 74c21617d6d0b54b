// Package render implements the output-format renderers named by the
// CLI's --output-format flag: single-line-summary, JSON,
// YAML, JUnit, and SARIF, all consuming the same report.Envelope.
package render

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/guardlang/guard/pkgs/report"
	"gopkg.in/yaml.v3"
)

// Format is one of the CLI's recognized --output-format values.
type Format string

const (
	SingleLineSummary Format = "single-line-summary"
	JSON              Format = "json"
	YAML              Format = "yaml"
	JUnit             Format = "junit"
	SARIF             Format = "sarif"
)

// Render writes env to w in the given format.
func Render(w io.Writer, env report.Envelope, format Format) error {
	switch format {
	case SingleLineSummary, "":
		return renderSingleLineSummary(w, env)
	case JSON:
		return renderJSON(w, env)
	case YAML:
		return renderYAML(w, env)
	case JUnit:
		return renderJUnit(w, env)
	case SARIF:
		return renderSARIF(w, env)
	default:
		return fmt.Errorf("render: unrecognized output format %q", format)
	}
}

// renderSingleLineSummary writes one line per file: its overall status
// and a pass/fail/skip tally across its rules, in the terse style a
// CLI's default non-machine-readable output takes.
func renderSingleLineSummary(w io.Writer, env report.Envelope) error {
	for _, f := range env.Files {
		pass, fail, skip := 0, 0, 0
		for _, r := range f.Rules {
			switch r.Status {
			case "PASS":
				pass++
			case "FAIL":
				fail++
			default:
				skip++
			}
		}
		if _, err := fmt.Fprintf(w, "%s against %s: %s (%d PASS, %d FAIL, %d SKIP)\n",
			f.RulesFile, f.DataFile, f.Status, pass, fail, skip); err != nil {
			return err
		}
		for _, r := range f.Rules {
			if r.Status != "FAIL" {
				continue
			}
			for _, msg := range r.Messages {
				if _, err := fmt.Fprintf(w, "  %s\n", msg); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func renderJSON(w io.Writer, env report.Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

func renderYAML(w io.Writer, env report.Envelope) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(env)
}

// --- JUnit ---

type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string         `xml:"name,attr"`
	Failure *junitFailure  `xml:"failure,omitempty"`
	Skipped *junitSkipped  `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

type junitSkipped struct{}

// renderJUnit emits one testsuite per rules file and one testcase per
// rule: a minimal but real JUnit XML document, not a
// full-fidelity JUnit implementation: the contract downstream CI
// consumers rely on, nothing more.
func renderJUnit(w io.Writer, env report.Envelope) error {
	doc := junitTestSuites{}
	for _, f := range env.Files {
		suite := junitTestSuite{Name: f.RulesFile + " :: " + f.DataFile}
		for _, r := range f.Rules {
			suite.Tests++
			tc := junitTestCase{Name: r.Name}
			switch r.Status {
			case "FAIL":
				suite.Failures++
				msg := "rule failed"
				if len(r.Messages) > 0 {
					msg = r.Messages[0]
				}
				tc.Failure = &junitFailure{Message: msg, Text: joinMessages(r.Messages)}
			case "SKIP":
				suite.Skipped++
				tc.Skipped = &junitSkipped{}
			}
			suite.Cases = append(suite.Cases, tc)
		}
		doc.Suites = append(doc.Suites, suite)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}

func joinMessages(msgs []string) string {
	out := ""
	for i, m := range msgs {
		if i > 0 {
			out += "\n"
		}
		out += m
	}
	return out
}

// --- SARIF ---

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type sarifResult struct {
	RuleID    string            `json:"ruleId"`
	Level     string            `json:"level"`
	Message   sarifMessage      `json:"message"`
	Locations []sarifLocation   `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

// renderSARIF emits one SARIF run per rules file, with one result per
// FAILing rule: a minimal, schema-valid SARIF 2.1.0
// document sufficient for downstream code-scanning consumers, not a
// full-fidelity renderer.
func renderSARIF(w io.Writer, env report.Envelope) error {
	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
	}
	for _, f := range env.Files {
		run := sarifRun{Tool: sarifTool{Driver: sarifDriver{Name: "guard"}}}
		for _, r := range f.Rules {
			if r.Status != "FAIL" {
				continue
			}
			msg := "rule failed"
			if len(r.Messages) > 0 {
				msg = r.Messages[0]
			}
			run.Results = append(run.Results, sarifResult{
				RuleID:  r.Name,
				Level:   "error",
				Message: sarifMessage{Text: msg},
				Locations: []sarifLocation{{PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: f.DataFile},
				}}},
			})
		}
		log.Runs = append(log.Runs, run)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

package codehealth

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// lintReport matches the JSON document emitted by golangci-lint style tools.
type lintReport struct {
	Issues []jsoniter.RawMessage `json:"Issues"`
}

var errUnrecognizedLintOutput = errors.New("unrecognized lint output format")

// ParseLintFindings extracts a finding count from lint output. It tries, in
// order: a JSON report with an Issues array, a checkstyle XML document, and
// finally a plain line count. The line-count fallback returns the count
// together with a non-nil error so the caller can record the parse miss.
func ParseLintFindings(output []byte) (int, error) {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return 0, nil
	}

	var report lintReport
	if err := json.Unmarshal([]byte(trimmed), &report); err == nil {
		return len(report.Issues), nil
	}

	if n, ok := parseCheckstyle([]byte(trimmed)); ok {
		return n, nil
	}

	count := 0
	for _, line := range strings.Split(trimmed, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, errUnrecognizedLintOutput
}

// parseCheckstyle counts <error> elements in a checkstyle XML report, the
// common interchange format for non-JSON linters.
func parseCheckstyle(output []byte) (int, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(output); err != nil {
		return 0, false
	}
	root := doc.SelectElement("checkstyle")
	if root == nil {
		return 0, false
	}
	count := 0
	for _, file := range root.SelectElements("file") {
		count += len(file.SelectElements("error"))
	}
	return count, true
}

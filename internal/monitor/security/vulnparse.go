package security

import (
	"bytes"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// vulnMessage is one envelope of the scanner's streamed JSON output. Only
// findings that name an OSV entry are of interest.
type vulnMessage struct {
	Finding *struct {
		OSV string `json:"osv"`
	} `json:"finding"`
}

// ParseVulnFindings counts distinct OSV identifiers in a vulnerability
// scanner's streamed JSON output. An empty stream means a clean scan.
func ParseVulnFindings(output []byte) (int, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return 0, nil
	}

	seen := map[string]bool{}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	for {
		var msg vulnMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
		if msg.Finding != nil && msg.Finding.OSV != "" {
			seen[msg.Finding.OSV] = true
		}
	}
	return len(seen), nil
}

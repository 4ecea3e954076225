package deps

import (
	"bytes"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/mod/semver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Update describes one available dependency upgrade. Safe means the major
// version component is unchanged.
type Update struct {
	Path    string `json:"path"`
	Current string `json:"current"`
	Latest  string `json:"latest"`
	Safe    bool   `json:"safe"`
}

// listedModule is one envelope of the toolchain's streamed module listing.
type listedModule struct {
	Path    string `json:"Path"`
	Version string `json:"Version"`
	Main    bool   `json:"Main"`
	Update  *struct {
		Version string `json:"Version"`
	} `json:"Update"`
}

// ParseOutdated decodes a streamed module listing and returns the available
// updates plus the total number of listed non-main modules.
func ParseOutdated(output []byte) ([]Update, int, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return nil, 0, nil
	}

	var updates []Update
	total := 0
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	for {
		var mod listedModule
		if err := decoder.Decode(&mod); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, err
		}
		if mod.Main || mod.Path == "" {
			continue
		}
		total++
		if mod.Update != nil && mod.Update.Version != "" && mod.Update.Version != mod.Version {
			updates = append(updates, Update{
				Path:    mod.Path,
				Current: mod.Version,
				Latest:  mod.Update.Version,
				Safe:    IsSafeUpdate(mod.Version, mod.Update.Version),
			})
		}
	}
	return updates, total, nil
}

// IsSafeUpdate reports whether current -> latest keeps the major version
// component. Valid semver strings compare by their major part; anything else
// falls back to comparing the first dot-delimited segment as text. Malformed
// input on either side classifies as major, the conservative default.
func IsSafeUpdate(current, latest string) bool {
	if semver.IsValid(current) && semver.IsValid(latest) {
		return semver.Major(current) == semver.Major(latest)
	}

	curMajor, curOK := firstSegment(current)
	latMajor, latOK := firstSegment(latest)
	if !curOK || !latOK {
		return false
	}
	return curMajor == latMajor
}

// firstSegment extracts the leading dot-delimited version component,
// tolerating a "v" prefix. A segment with no digits is malformed.
func firstSegment(version string) (string, bool) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if v == "" {
		return "", false
	}
	segment, _, _ := strings.Cut(v, ".")
	if segment == "" {
		return "", false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return segment, true
}

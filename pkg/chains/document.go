// Package chains edits a proxychains configuration file: it activates a
// chain strategy and rewrites the [ProxyList] section, with every
// mutation performed as a backup/temp-file/atomic-rename transaction.
package chains

import (
	"fmt"
	"strings"

	"proxychains-pool/pkg/models"
)

// Strategy is a proxychains chain selection policy.
type Strategy string

const (
	DynamicChain    Strategy = "dynamic_chain"
	StrictChain     Strategy = "strict_chain"
	RandomChain     Strategy = "random_chain"
	RoundRobinChain Strategy = "round_robin_chain"
)

// knownStrategies are the directives the editor is allowed to toggle.
// Anything else in the file is left untouched.
var knownStrategies = []Strategy{DynamicChain, StrictChain, RandomChain, RoundRobinChain}

// ParseStrategy validates a user-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	for _, known := range knownStrategies {
		if Strategy(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unsupported chain strategy: %q", s)
}

const proxyListMarker = "[ProxyList]"

var entryTypes = []string{"http", "https", "socks4", "socks5"}

// FormatEntry renders one proxy-list entry line, e.g. "http 1.2.3.4 8080".
func FormatEntry(ep models.Endpoint, proxyType models.ProxyType) string {
	return fmt.Sprintf("%s %s %d", proxyType, ep.Host, ep.Port)
}

// document is the line-indexed in-memory form of a configuration file.
// It is owned by a single edit transaction and serializes back to the
// original bytes when no mutation is applied.
type document struct {
	lines []string
}

func parseDocument(data []byte) *document {
	return &document{lines: strings.Split(string(data), "\n")}
}

func (d *document) bytes() []byte {
	return []byte(strings.Join(d.lines, "\n"))
}

// proxyListIndex returns the line index of the [ProxyList] marker, or -1.
func (d *document) proxyListIndex() int {
	for i, line := range d.lines {
		if strings.TrimSpace(line) == proxyListMarker {
			return i
		}
	}
	return -1
}

// isEntryLine reports whether a line is a proxy entry ("type host port").
func isEntryLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return false
	}
	for _, t := range entryTypes {
		if fields[0] == t {
			return true
		}
	}
	return false
}

// setEntries removes every entry line in the proxy-list section and
// inserts the given entries directly below the marker. Comments and blank
// lines in the section survive. A missing marker is a format error.
func (d *document) setEntries(entries []string) error {
	idx := d.proxyListIndex()
	if idx < 0 {
		return fmt.Errorf("configuration has no %s section marker", proxyListMarker)
	}

	// The section runs from the marker to the next section header or EOF.
	end := len(d.lines)
	for i := idx + 1; i < len(d.lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(d.lines[i]), "[") {
			end = i
			break
		}
	}

	var kept []string
	for _, line := range d.lines[idx+1 : end] {
		if !isEntryLine(line) {
			kept = append(kept, line)
		}
	}

	rebuilt := make([]string, 0, len(d.lines)+len(entries))
	rebuilt = append(rebuilt, d.lines[:idx+1]...)
	rebuilt = append(rebuilt, entries...)
	rebuilt = append(rebuilt, kept...)
	rebuilt = append(rebuilt, d.lines[end:]...)
	d.lines = rebuilt
	return nil
}

// parseStrategyLine reports whether a line is a known strategy directive,
// active or commented out.
func parseStrategyLine(line string) (name Strategy, commented bool, ok bool) {
	trimmed := strings.TrimSpace(line)
	commented = strings.HasPrefix(trimmed, "#")
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	for _, known := range knownStrategies {
		if body == string(known) {
			return known, commented, true
		}
	}
	return "", false, false
}

// setStrategy leaves exactly one active directive, the requested one, and
// comments out every other known strategy directive. A configuration with
// no directive line for the requested strategy is a format error: the
// editor never inserts directives it did not find.
func (d *document) setStrategy(strategy Strategy) error {
	activated := false
	for i, line := range d.lines {
		name, commented, ok := parseStrategyLine(line)
		if !ok {
			continue
		}
		if name == strategy && !activated {
			d.lines[i] = string(strategy)
			activated = true
		} else if !commented {
			d.lines[i] = "#" + string(name)
		}
	}
	if !activated {
		return fmt.Errorf("configuration has no directive line for strategy %q", strategy)
	}
	return nil
}

// activeStrategies lists the uncommented known strategy directives.
func (d *document) activeStrategies() []Strategy {
	var active []Strategy
	for _, line := range d.lines {
		if name, commented, ok := parseStrategyLine(line); ok && !commented {
			active = append(active, name)
		}
	}
	return active
}

// Package proxylist reads and writes plaintext proxy lists, one ip:port
// per line.
package proxylist

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"proxychains-pool/pkg/models"
)

// Parse reads ip:port lines from r. Blank lines, comment lines starting
// with '#' and lines that do not parse as host:port are skipped; the
// number of skipped lines is returned so the caller can log it. An empty
// result is valid, not an error.
func Parse(r io.Reader) ([]models.Endpoint, int, error) {
	var endpoints []models.Endpoint
	skipped := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ep, ok := parseLine(line)
		if !ok {
			skipped++
			continue
		}
		endpoints = append(endpoints, ep)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("error reading proxy list: %w", err)
	}

	return endpoints, skipped, nil
}

func parseLine(line string) (models.Endpoint, bool) {
	host, portStr, err := net.SplitHostPort(line)
	if err != nil || host == "" {
		return models.Endpoint{}, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return models.Endpoint{}, false
	}
	return models.Endpoint{Host: host, Port: port}, true
}

// ReadFile parses the proxy list at path.
func ReadFile(path string) ([]models.Endpoint, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open proxy list: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// WriteFile writes endpoints to path, one ip:port per line. The output
// round-trips through Parse.
func WriteFile(path string, endpoints []models.Endpoint) error {
	var sb strings.Builder
	for _, ep := range endpoints {
		sb.WriteString(ep.Addr())
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write proxy list: %w", err)
	}
	return nil
}

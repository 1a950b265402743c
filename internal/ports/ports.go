// Package ports handles TCP port list parsing for lansweep.
// It parses ports files (one port or inclusive range per line, with
// comments), the comma-separated exclude grammar, and provides the
// built-in default and quick port sets.
package ports

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ostrand/lansweep/internal/errors"
)

const maxPort = 65535

// Parse parses ports file content into a deduplicated list of TCP ports.
//
// Supported formats per line:
//   - single port number: `80`
//   - inclusive range: `8000-8010`
//   - comments: everything after `#` is ignored
//   - whitespace and blank lines are ignored
//
// Duplicates are collapsed, first appearance wins the position.
func Parse(content string) ([]int, error) {
	var out []int
	seen := make(map[int]bool)

	for idx, rawLine := range strings.Split(content, "\n") {
		lineNo := idx + 1

		line := rawLine
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if a, b, ok := strings.Cut(line, "-"); ok {
			start, err := parsePort(strings.TrimSpace(a))
			if err != nil {
				return nil, errors.WrapConfigError(errors.CodePortInvalid,
					fmt.Sprintf("line %d: invalid start in range: %s", lineNo, a), err)
			}
			end, err := parsePort(strings.TrimSpace(b))
			if err != nil {
				return nil, errors.WrapConfigError(errors.CodePortInvalid,
					fmt.Sprintf("line %d: invalid end in range: %s", lineNo, b), err)
			}
			if start > end {
				return nil, errors.NewConfigError(errors.CodePortInvalid,
					fmt.Sprintf("line %d: invalid range %d-%d (start > end)", lineNo, start, end))
			}
			for p := start; p <= end; p++ {
				if !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
			continue
		}

		p, err := parsePort(line)
		if err != nil {
			return nil, errors.WrapConfigError(errors.CodePortInvalid,
				fmt.Sprintf("line %d: invalid port value: %s", lineNo, line), err)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	return out, nil
}

// ParseSpec parses a comma-separated port specification such as
// "53,8000-8010,443". It shares the single-value and range grammar of
// the ports file and is used for exclude lists and CLI flags.
func ParseSpec(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	normalized := strings.ReplaceAll(spec, ",", "\n")
	return Parse(normalized)
}

// LoadFile loads a ports list from a file path. Errors if the file
// cannot be read or parsed.
func LoadFile(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeFileNotFound,
			fmt.Sprintf("failed to read ports file: %s", path), err)
	}
	return Parse(string(data))
}

// LoadFileOrDefault loads a ports list from a file, falling back to the
// built-in default set when the file is missing, unreadable, or empty.
// When quick is true the fallback is the quick set instead.
func LoadFileOrDefault(path string, quick bool) []int {
	if path != "" {
		if ports, err := LoadFile(path); err == nil && len(ports) > 0 {
			return ports
		}
	}
	if quick {
		return Quick()
	}
	return Default()
}

// Exclude removes every port in the exclusion set from the list,
// preserving order.
func Exclude(list []int, excluded []int) []int {
	if len(excluded) == 0 {
		return list
	}
	drop := make(map[int]bool, len(excluded))
	for _, p := range excluded {
		drop[p] = true
	}
	out := make([]int, 0, len(list))
	for _, p := range list {
		if !drop[p] {
			out = append(out, p)
		}
	}
	return out
}

// Default returns the built-in list of commonly used TCP ports.
// The list is intentionally small-but-useful and safe for LAN scanning.
func Default() []int {
	ports := []int{
		// Core infra
		20, 21, 22, 23, 25, 53, 67, 68, 69, 80, 110, 111, 123, 135, 137, 138, 139, 143, 161, 179,
		389, 427, 443, 445, 465, 500, 512, 513, 514, 515, 520, 554, 587, 631, 636, 853, 873, 902,
		989, 990, 993, 995,
		// App servers, databases, queues
		1025, 1080, 1194, 1433, 1434, 1521, 1723, 1883, 2049, 2082, 2083, 2086, 2087, 2181, 2375,
		2376, 2380, 2483, 2484, 27017, 27018, 27019, 28017, 3000, 3128, 3260, 3306, 3333, 3389,
		3478, 4000, 4040, 4369, 4444, 4500, 4567, 5000, 5001, 5040, 5050, 5060, 5061, 5432, 5555,
		5671, 5672, 5696, 5900, 5901, 5984, 5985, 5986, 6000, 6080, 61616, 6379, 6380, 6443, 6666,
		6667, 7001, 7002, 7199, 7200, 7777, 8000, 8001, 8008, 8009, 8010, 8080, 8081, 8088, 8089,
		8090, 8161, 8181, 8200, 8222, 8333, 8443, 8500, 8529, 8888, 9000, 9001, 9042, 9071, 9090,
		9091, 9092, 9100, 9200, 9300, 9418, 9443, 9500, 9600, 9666, 9999, 10000, 11211,
	}
	return ports
}

// Quick returns a smaller set for quick scans, focusing on common
// interactive, web, and database ports.
func Quick() []int {
	return []int{
		21, 22, 23, 25, 80, 110, 135, 139, 143, 443, 445, 465, 500, 587, 631, 993, 995, 1433, 1521,
		1723, 1883, 3000, 3128, 3260, 3306, 3389, 5000, 5432, 5672, 5900, 5985, 5986, 6379, 7001,
		7002, 8000, 8008, 8080, 8081, 8088, 8443, 8888, 9000, 9092, 9200, 9300, 11211, 27017,
	}
}

func parsePort(s string) (int, error) {
	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if val <= 0 || val > maxPort {
		return 0, fmt.Errorf("port out of range: %d", val)
	}
	return val, nil
}

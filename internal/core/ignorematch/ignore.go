// Package ignorematch parses gitignore-style rules from a single top-level
// ignore file and tests relative paths against them.
package ignorematch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName is the fixed basename of the optional ignore file at the sync
// root.
const FileName = "_.syftignore"

// Matcher tests relative paths against the compiled ignore rules.
type Matcher struct {
	syncRoot string
	ignore   *gitignore.GitIgnore
}

// Load reads FileName at syncRoot, if present, and compiles its rules. A
// missing file yields a Matcher that ignores nothing.
func Load(syncRoot string) (*Matcher, error) {
	path := filepath.Join(syncRoot, FileName)

	lines, err := readLines(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{syncRoot: syncRoot, ignore: gitignore.CompileIgnoreLines()}, nil
		}
		return nil, fmt.Errorf("ignorematch: read %s: %w", path, err)
	}

	return &Matcher{syncRoot: syncRoot, ignore: gitignore.CompileIgnoreLines(lines...)}, nil
}

// Match reports whether relPath (POSIX-style, relative to syncRoot) should
// be excluded from sync.
func (m *Matcher) Match(relPath string) bool {
	if m == nil || m.ignore == nil {
		return false
	}
	return m.ignore.MatchesPath(relPath)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, "\x00") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

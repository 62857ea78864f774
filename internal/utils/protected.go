package utils

import (
	"bufio"
	"os"
	"strings"
)

// ProtectedTitles holds titles that must never be deleted or unmonitored
type ProtectedTitles struct {
	titles map[string]string // normalized -> original
}

// LoadProtectedTitles loads protected titles from a file, one per line
func LoadProtectedTitles(path string) (*ProtectedTitles, error) {
	// If file doesn't exist, nothing is protected
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewProtectedTitles(nil), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var titles []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		title := strings.TrimSpace(scanner.Text())
		if title != "" && !strings.HasPrefix(title, "#") {
			titles = append(titles, title)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewProtectedTitles(titles), nil
}

// NewProtectedTitles builds a protected list from titles
func NewProtectedTitles(titles []string) *ProtectedTitles {
	p := &ProtectedTitles{titles: make(map[string]string, len(titles))}
	for _, t := range titles {
		if n := NormalizeName(t); n != "" {
			p.titles[n] = t
		}
	}
	return p
}

// IsProtected checks if a title matches a protected entry.
// Returns (isProtected, matchedEntry)
func (p *ProtectedTitles) IsProtected(title string) (bool, string) {
	if p == nil || len(p.titles) == 0 {
		return false, ""
	}
	if entry, ok := p.titles[NormalizeName(title)]; ok {
		return true, entry
	}
	return false, ""
}

// Len returns the number of protected titles
func (p *ProtectedTitles) Len() int {
	if p == nil {
		return 0
	}
	return len(p.titles)
}

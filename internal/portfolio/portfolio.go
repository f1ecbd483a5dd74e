package portfolio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Entry is one portfolio row: a tech-stack description and the project link
// it should surface for.
type Entry struct {
	Techstack string
	Link      string
}

// LoadCSV reads portfolio entries from a CSV file with Techstack and Links
// columns. Column order does not matter; header names are matched
// case-insensitively and fall back to the first two columns.
func LoadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read portfolio csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("portfolio csv %s is empty", path)
	}

	techCol, linkCol := 0, 1
	rows := records
	if cols, ok := headerColumns(records[0]); ok {
		techCol, linkCol = cols[0], cols[1]
		rows = records[1:]
	}
	var entries []Entry
	for _, rec := range rows {
		if techCol >= len(rec) || linkCol >= len(rec) {
			continue
		}
		tech := strings.TrimSpace(rec[techCol])
		link := strings.TrimSpace(rec[linkCol])
		if tech == "" || link == "" {
			continue
		}
		entries = append(entries, Entry{Techstack: tech, Link: link})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("portfolio csv %s has no usable rows", path)
	}
	return entries, nil
}

func headerColumns(header []string) ([2]int, bool) {
	tech, link := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "techstack", "tech_stack", "tech stack":
			tech = i
		case "links", "link":
			link = i
		}
	}
	if tech < 0 || link < 0 {
		return [2]int{}, false
	}
	return [2]int{tech, link}, true
}

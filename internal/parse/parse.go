package parse

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"mangascout/internal/domain"
)

var chapterNumberPattern = regexp.MustCompile(`(?i)(?:глава|chapter|ch\.|гл\.)\s*(\d+(?:[.,]\d+)?)`)

// ChapterNumber gets the chapter number from a scraped chapter name
func ChapterNumber(name string) (float32, bool) {
	// FindStringSubmatch returns the full match first, then the submatches
	matches := chapterNumberPattern.FindStringSubmatch(name)
	if len(matches) < 2 {
		return 0, false
	}

	number, err := strconv.ParseFloat(strings.ReplaceAll(matches[1], ",", "."), 32)
	if err != nil {
		return 0, false
	}
	return float32(number), true
}

// ChapterSelection parses the user input for ranges and parts and returns the
// positions of matching chapters in ascending order
func ChapterSelection(input string, chapters []domain.ChapterRef) ([]int, error) {
	parts := strings.Split(input, ",")
	selected := make(map[int]bool)

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}

		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid range format: %s", part)
			}
			start, end, err := getRange(rangeParts)
			if err != nil {
				return nil, err
			}

			for i, ch := range chapters {
				if ch.Number >= start && ch.Number <= end {
					selected[i] = true
				}
			}
		} else {
			number, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
			if err != nil {
				return nil, fmt.Errorf("invalid chapter number: %s", part)
			}
			for i, ch := range chapters {
				if ch.Number == float32(number) {
					selected[i] = true
				}
			}
		}
	}

	positions := make([]int, 0, len(selected))
	for i := range selected {
		positions = append(positions, i)
	}
	slices.Sort(positions)

	return positions, nil
}

// getRange parses the user input for chapter ranges
func getRange(rangeParts []string) (float32, float32, error) {
	start, err := strconv.ParseFloat(strings.TrimSpace(rangeParts[0]), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start of range: %s", rangeParts[0])
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(rangeParts[1]), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end of range: %s", rangeParts[1])
	}

	if start > end {
		return 0, 0, fmt.Errorf("start of range should not be greater than end: %s-%s", rangeParts[0], rangeParts[1])
	}

	return float32(start), float32(end), nil
}

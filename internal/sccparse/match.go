package sccparse

import (
	"regexp"
	"strings"
)

// FlexMatch tests whether pattern fully matches some contiguous substring of
// the cell text while tolerating at most slack characters of surrounding
// padding. Checklist authors pad label cells inconsistently, so an exact-cell
// match is too strict and a bare substring search is too loose. Slack 0 means
// the trimmed cell must match the pattern exactly.
//
// Returns the matched substring and whether the match met the slack limit.
func FlexMatch(re *regexp.Regexp, cell string, slack int) (string, bool) {
	text := strings.TrimSpace(cell)
	if text == "" {
		return "", false
	}

	best := ""
	for _, loc := range re.FindAllStringIndex(text, -1) {
		m := text[loc[0]:loc[1]]
		if len(m) > len(best) {
			best = m
		}
	}
	if best == "" {
		return "", false
	}
	if len(text)-len(best) > slack {
		return "", false
	}
	return best, true
}

// findInSheet scans a bounded window of cells for the first flexible match.
func findInSheet(rows [][]string, re *regexp.Regexp, slack, maxRows, maxCols int) (string, bool) {
	for i, row := range rows {
		if i >= maxRows {
			break
		}
		for j, cell := range row {
			if j >= maxCols {
				break
			}
			if m, ok := FlexMatch(re, cell, slack); ok {
				return m, true
			}
		}
	}
	return "", false
}

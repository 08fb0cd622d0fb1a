// Package console provides pagination over build console logs.
package console

import "strings"

// Page is one window into a build log.
type Page struct {
	Lines         []string
	TotalLines    int
	StartLine     int
	LinesReturned int
	HasMore       bool
}

// Paginate selects a window of lines. Forward mode reads maxLines
// starting at the absolute offset startLine. In fromEnd mode
// startLine is instead the number of trailing lines to skip before
// taking the page, so startLine=0 returns the tail of the log and
// growing startLine pages toward the head. Pure function: identical
// inputs yield identical pages.
func Paginate(lines []string, startLine, maxLines int, fromEnd bool) Page {
	total := len(lines)
	if startLine < 0 {
		startLine = 0
	}

	var begin, end int
	var hasMore bool
	if fromEnd {
		end = total - startLine
		if end < 0 {
			end = 0
		}
		begin = end - maxLines
		if begin < 0 {
			begin = 0
		}
		hasMore = begin > 0
	} else {
		begin = min(startLine, total)
		end = min(begin+maxLines, total)
		hasMore = end < total
	}

	return Page{
		Lines:         lines[begin:end],
		TotalLines:    total,
		StartLine:     begin,
		LinesReturned: end - begin,
		HasMore:       hasMore,
	}
}

// SplitLines splits console text into lines, tolerating CRLF endings.
// A single trailing newline does not produce a trailing empty line,
// and empty input yields no lines at all.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

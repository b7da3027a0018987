// Package search streams matches of a literal term or a regular
// expression over the lines of a text buffer. The engine runs as a
// background task and emits hits on a channel in ascending line order;
// hit values carry the matched line text by copy, so consumers never
// hold references into the buffer's overlay.
package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"unicode/utf8"
)

// ErrBadPattern is returned for a regex query that does not compile.
var ErrBadPattern = errors.New("search: invalid pattern")

// yieldEveryLines is how many lines are scanned between scheduler
// yields.
const yieldEveryLines = 1000

// Query describes one search.
type Query struct {
	Term          string
	CaseSensitive bool
	Regex         bool
}

// Hit is one match. Char and Length are rune positions in the decoded
// line; Text is the full line the match was found on.
type Hit struct {
	Line   int
	Char   int
	Length int
	Text   string
}

// Result is one element of the streamed sequence: a hit, or a terminal
// error (bad pattern, cancellation, or a read failure).
type Result struct {
	Hit Hit
	Err error
}

// Source is the line access the engine needs. *textbuf.Buffer satisfies
// it.
type Source interface {
	LineCount() int
	ReadLine(i int) string
}

// Run starts the search and returns the hit channel. The channel is
// closed when every line has been visited, after a terminal error
// result, or once ctx is cancelled; cancellation is checked once per
// line and surfaces as a result carrying ctx.Err().
func Run(ctx context.Context, src Source, q Query) <-chan Result {
	out := make(chan Result, 64)
	go func() {
		defer close(out)
		if q.Term == "" {
			return
		}
		var re *regexp.Regexp
		if q.Regex {
			pattern := q.Term
			if !q.CaseSensitive {
				pattern = "(?i)" + pattern
			}
			var err error
			re, err = regexp.Compile(pattern)
			if err != nil {
				emit(ctx, out, Result{Err: fmt.Errorf("%w: %v", ErrBadPattern, err)})
				return
			}
		}
		count := src.LineCount()
		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				emit(ctx, out, Result{Err: err})
				return
			}
			line := src.ReadLine(i)
			var hits []Hit
			if re != nil {
				hits = regexLine(re, i, line)
			} else {
				hits = literalLine(q, i, line)
			}
			for _, h := range hits {
				if !emit(ctx, out, Result{Hit: h}) {
					return
				}
			}
			if i > 0 && i%yieldEveryLines == 0 {
				runtime.Gosched()
			}
		}
	}()
	return out
}

// emit sends r unless the context ends first. It reports whether the
// send happened.
func emit(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// literalLine finds non-overlapping occurrences of the term by repeated
// substring scanning, advancing past each match.
func literalLine(q Query, lineIdx int, line string) []Hit {
	haystack := line
	needle := q.Term
	if !q.CaseSensitive {
		haystack = strings.ToLower(haystack)
		needle = strings.ToLower(needle)
	}
	termRunes := utf8.RuneCountInString(needle)
	var hits []Hit
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			break
		}
		start := from + idx
		hits = append(hits, Hit{
			Line:   lineIdx,
			Char:   utf8.RuneCountInString(haystack[:start]),
			Length: termRunes,
			Text:   line,
		})
		from = start + len(needle)
	}
	return hits
}

// regexLine emits every non-overlapping match of re on the line.
func regexLine(re *regexp.Regexp, lineIdx int, line string) []Hit {
	var hits []Hit
	for _, loc := range re.FindAllStringIndex(line, -1) {
		hits = append(hits, Hit{
			Line:   lineIdx,
			Char:   utf8.RuneCountInString(line[:loc[0]]),
			Length: utf8.RuneCountInString(line[loc[0]:loc[1]]),
			Text:   line,
		})
	}
	return hits
}

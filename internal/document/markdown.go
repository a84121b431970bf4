// Package document reads and writes persisted org chart documents.
//
// The markdown form looks like:
//
//	# Org Structure
//
//	## Jane Doe
//	- **Manager:** null
//	- **Direct Reports:** John Smith, Kim Lee
//	- **Teammates:** null
//	- **Working on:** platform roadmap
//
//	---
//
// "null" marks an absent value; lists are comma separated.
package document

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/okian/orgchart/internal/domain/model"
)

// Title is the first line of a rendered document.
const Title = "# Org Structure"

const (
	labelManager       = "Manager"
	labelDirectReports = "Direct Reports"
	labelTeammates     = "Teammates"
	labelWorkingOn     = "Working on"
	separator          = "---"
	null               = "null"
)

var fieldLine = regexp.MustCompile(`^-\s+\*\*([^:*]+):\*\*\s*(.*)$`)

// Parse reads a markdown chart. Unknown field labels are ignored.
func Parse(r io.Reader) ([]model.Entry, error) {
	var (
		entries []model.Entry
		cur     *model.Entry
		seen    map[string]bool
	)
	flush := func() {
		if cur != nil {
			entries = append(entries, *cur)
		}
		cur, seen = nil, nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == separator:
			flush()
			continue
		case strings.HasPrefix(line, "# ") && len(entries) == 0 && cur == nil:
			// document title
			continue
		}

		if cur == nil {
			if !isHeader(line) {
				return nil, fmt.Errorf("%w: line %d: %q", ErrMissingHeader, n, line)
			}
			name := strings.TrimSpace(strings.TrimPrefix(line, "##"))
			if name == "" {
				return nil, fmt.Errorf("%w: line %d", ErrEmptyName, n)
			}
			cur = &model.Entry{Name: name}
			seen = make(map[string]bool)
			continue
		}

		if isHeader(line) {
			return nil, fmt.Errorf("%w: line %d: second header in one section", ErrMissingHeader, n)
		}
		if !strings.HasPrefix(line, "- **") {
			continue
		}
		m := fieldLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedField, n, line)
		}
		label, value := canonicalLabel(m[1]), strings.TrimSpace(m[2])
		if label == "" {
			continue
		}
		if seen[label] {
			return nil, fmt.Errorf("%w: line %d: %s", ErrDuplicateField, n, label)
		}
		seen[label] = true

		switch label {
		case labelManager:
			cur.Manager = scalar(value)
		case labelDirectReports:
			cur.DirectReports = list(value)
		case labelTeammates:
			cur.Teammates = list(value)
		case labelWorkingOn:
			cur.Annotation = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	flush()
	return entries, nil
}

// RenderEntries writes entries in markdown form. Every value is flattened
// onto one line so the output always parses back.
func RenderEntries(w io.Writer, entries []model.Entry) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n\n", Title)
	for _, e := range entries {
		fmt.Fprintf(bw, "## %s\n", flatten(e.Name))
		fmt.Fprintf(bw, "- **%s:** %s\n", labelManager, orNull(flatten(e.Manager)))
		fmt.Fprintf(bw, "- **%s:** %s\n", labelDirectReports, orNull(joinList(e.DirectReports)))
		fmt.Fprintf(bw, "- **%s:** %s\n", labelTeammates, orNull(joinList(e.Teammates)))
		fmt.Fprintf(bw, "- **%s:** %s\n", labelWorkingOn, flatten(e.Annotation))
		fmt.Fprintf(bw, "\n%s\n\n", separator)
	}
	return bw.Flush()
}

// Render writes chart in markdown form, employees in chart order.
func Render(w io.Writer, chart *model.OrgChart) error {
	return RenderEntries(w, Entries(chart))
}

// Entries converts a chart into document entries with display names.
func Entries(chart *model.OrgChart) []model.Entry {
	employees := chart.Employees()
	out := make([]model.Entry, 0, len(employees))
	for _, e := range employees {
		entry := model.Entry{
			Name:       e.DisplayName,
			Manager:    chart.DisplayName(e.Manager),
			Annotation: e.Annotation,
		}
		for _, k := range e.DirectReports {
			entry.DirectReports = append(entry.DirectReports, chart.DisplayName(k))
		}
		for _, k := range e.Teammates {
			entry.Teammates = append(entry.Teammates, chart.DisplayName(k))
		}
		out = append(out, entry)
	}
	return out
}

func isHeader(line string) bool {
	return line == "##" || strings.HasPrefix(line, "## ")
}

func canonicalLabel(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, l := range []string{labelManager, labelDirectReports, labelTeammates, labelWorkingOn} {
		if strings.EqualFold(raw, l) {
			return l
		}
	}
	return ""
}

func scalar(v string) string {
	if strings.EqualFold(v, null) {
		return ""
	}
	return v
}

func list(v string) []string {
	if v == "" || strings.EqualFold(v, null) {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// flatten collapses every run of whitespace, newlines included, into a
// single space.
func flatten(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

func joinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = flatten(item); item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ", ")
}

func orNull(v string) string {
	if v == "" {
		return null
	}
	return v
}

package number

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const DefaultTemplate = "QT-{YYYY}{MM}{DD}-{SEQ3}"

// Format renders a human-readable quotation number from a template,
// the allocation date, and a monotonic sequence.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
//
// {SEQn} pads the sequence to at least n digits and never truncates,
// so sequence 1000 under {SEQ3} renders as four digits.
func Format(template string, at time.Time, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("quotation number template is empty")
	}

	if seq <= 0 {
		return "", fmt.Errorf("invalid quotation sequence: %d", seq)
	}

	out := template

	// Date tokens
	out = strings.ReplaceAll(out, "{YYYY}", at.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", at.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", at.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", at.Format("02"))

	// Simple sequence
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	// Padded sequence
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	// Final safety check: unresolved tokens
	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in quotation number format: %s", out)
	}

	return out, nil
}

// DatePrefix renders the template with the sequence token stripped,
// leaving the day-scoped prefix used to look up the latest number.
// For the default template and 2024-03-15 the result is "QT-20240315-".
func DatePrefix(template string, at time.Time) (string, error) {
	idx := strings.Index(template, "{SEQ")
	if idx < 0 {
		return "", fmt.Errorf("quotation number template has no sequence token: %s", template)
	}

	prefix := template[:idx]
	prefix = strings.ReplaceAll(prefix, "{YYYY}", at.Format("2006"))
	prefix = strings.ReplaceAll(prefix, "{YY}", at.Format("06"))
	prefix = strings.ReplaceAll(prefix, "{MM}", at.Format("01"))
	prefix = strings.ReplaceAll(prefix, "{DD}", at.Format("02"))

	if strings.Contains(prefix, "{") || strings.Contains(prefix, "}") {
		return "", fmt.Errorf("unresolved token in quotation number prefix: %s", prefix)
	}

	return prefix, nil
}

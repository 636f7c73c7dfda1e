package pipeline

import (
	"regexp"
	"strings"
)

var (
	emailRe   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe   = regexp.MustCompile(`\+?\(?\d[\d ().\-]{7,}\d`)
	dateRe    = regexp.MustCompile(`(?i)\b(?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{4}|\d{1,2}/\d{4}|\d{4}\s*[-–]\s*(?:\d{4}|present|current|now))\b`)
	addressRe = regexp.MustCompile(`(?i)\b\d+\s+[a-z0-9 .'\-]+\s(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|way|rua|strasse|straße)\b`)
	nameRe    = regexp.MustCompile(`(?m)^#\s+\p{Lu}[\p{L}'\-]+(?:\s+\p{Lu}[\p{L}'\-.]*){1,3}\s*$`)
	titleRe   = regexp.MustCompile(`(?i)\b(?:engineer|developer|manager|director|designer|analyst|scientist|consultant|architect|lead|intern|specialist|officer|administrator)\b`)
)

var addressWords = []string{"address:", "location:", "based in"}

// DetectElements tags the kinds of résumé content found in a page. The order
// of the returned tags is fixed.
func DetectElements(text string) []string {
	out := make([]string, 0, 6)
	if emailRe.MatchString(text) {
		out = append(out, "email")
	}
	if hasPhone(text) {
		out = append(out, "phone")
	}
	lower := strings.ToLower(text)
	if addressRe.MatchString(text) || containsAny(lower, addressWords) {
		out = append(out, "address")
	}
	if nameRe.MatchString(text) || strings.Contains(lower, "name:") {
		out = append(out, "name")
	}
	if dateRe.MatchString(text) {
		out = append(out, "date")
	}
	if titleRe.MatchString(text) {
		out = append(out, "title")
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// hasPhone accepts a phone-shaped run only when it carries at least nine
// digits, which rules out year ranges such as "2019-2023".
func hasPhone(text string) bool {
	for _, m := range phoneRe.FindAllString(text, -1) {
		digits := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= 9 {
			return true
		}
	}
	return false
}

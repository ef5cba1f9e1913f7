/*
classification.go - Job title cleanup rules

PURPOSE:
  Extracts use inconsistent, sometimes gender-qualified job titles
  ("FEMALE PARA", "MALE  TEACHER AIDE", titles with embedded newlines).
  Reports must group these under a single canonical classification.

INVARIANT:
  CleanClassification is idempotent: applying it twice yields the same
  result as applying it once.

RULES (in order):
  1. Newlines and carriage returns become spaces; runs of whitespace
     collapse to one space; result is trimmed.
  2. "FEMALE PARA" and "MALE PARA" (any case) map to "PARAPROFESSIONAL".
  3. Any other "FEMALE"/"MALE" word is removed, e.g.
     "FEMALE TEACHER AIDE" -> "TEACHER AIDE".
*/
package jobs

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	genderWord    = regexp.MustCompile(`(?i)\b(FEMALE|MALE)\s*`)
)

// CleanClassification normalizes a raw classification string.
func CleanClassification(raw string) string {
	clean := strings.NewReplacer("\n", " ", "\r", " ").Replace(raw)
	clean = strings.TrimSpace(whitespaceRun.ReplaceAllString(clean, " "))

	switch strings.ToUpper(clean) {
	case "FEMALE PARA", "MALE PARA":
		return "PARAPROFESSIONAL"
	}

	clean = genderWord.ReplaceAllString(clean, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(clean, " "))
}

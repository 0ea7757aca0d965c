// Package validate inspects raw SQL text before it is allowed anywhere
// near a connection. Validation is a pure function of the statement, the
// active mode, and the keywords the invoking tool is designed to emit.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator bounds and screens SQL statements.
type Validator struct {
	// MaxLength caps statement length in bytes; 0 disables the check.
	MaxLength int
	// MaxParams caps the number of bound parameters; 0 disables the check.
	MaxParams int
}

// denylist names destructive or escape-hatch keywords rejected in every
// mode unless the calling tool declares them. Matched on word boundaries
// against SQL with string literals and comments stripped.
var denylist = []string{
	"DROP", "TRUNCATE", "ALTER", "GRANT", "REVOKE",
	"SHUTDOWN", "BULK", "OPENROWSET", "OPENDATASOURCE", "OPENQUERY",
	"OPENXML", "WAITFOR",
}

// readOnlyDenylist extends the denylist under READ_ONLY.
var readOnlyDenylist = []string{
	"INSERT", "UPDATE", "DELETE", "CREATE", "EXEC", "EXECUTE",
	"MERGE", "BACKUP", "RESTORE",
}

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLit    = regexp.MustCompile(`'(?:[^']|'')*'`)
	sysPrefix    = regexp.MustCompile(`(?i)(?:^|[^\w])(?:xp_|sp_)\w+`)
	sysVariable  = regexp.MustCompile(`@@\w+`)
)

var keywordPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, kw := range append(append([]string{}, denylist...), readOnlyDenylist...) {
		keywordPatterns[kw] = regexp.MustCompile(`(?i)(?:^|[^\w])` + kw + `(?:[^\w]|$)`)
	}
}

// StripLiterals removes string literals and comments so keyword scanning
// does not trip on values like WHERE name = 'DROP TABLE users'.
func StripLiterals(query string) string {
	out := blockComment.ReplaceAllString(query, " ")
	out = lineComment.ReplaceAllString(out, " ")
	out = stringLit.ReplaceAllString(out, "''")
	return out
}

// LeadingKeyword returns the first keyword of the statement after
// stripping comments and whitespace, upper-cased.
func LeadingKeyword(query string) string {
	cleaned := strings.TrimSpace(StripLiterals(query))
	if cleaned == "" {
		return ""
	}
	fields := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// checkBounds enforces statement length and parameter count limits.
func (v *Validator) checkBounds(query string, paramCount int) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("empty query")
	}
	if v.MaxLength > 0 && len(query) > v.MaxLength {
		return fmt.Errorf("query exceeds maximum length of %d bytes", v.MaxLength)
	}
	if v.MaxParams > 0 && paramCount > v.MaxParams {
		return fmt.Errorf("query exceeds maximum of %d parameters", v.MaxParams)
	}
	return nil
}

func checkMultipleStatements(cleaned string) error {
	if idx := strings.Index(cleaned, ";"); idx != -1 {
		if strings.TrimSpace(cleaned[idx+1:]) != "" {
			return fmt.Errorf("multiple statements are not allowed")
		}
	}
	return nil
}

func checkDenylist(cleaned string, keywords []string, allowed map[string]bool) error {
	for _, kw := range keywords {
		if allowed[kw] {
			continue
		}
		if keywordPatterns[kw].MatchString(cleaned) {
			return fmt.Errorf("keyword %s is not permitted", kw)
		}
	}
	return nil
}

// ValidateReadOnly rejects any statement whose leading keyword is not
// SELECT, plus everything on the denylists and known escape hatches.
func (v *Validator) ValidateReadOnly(query string, paramCount int) error {
	if err := v.checkBounds(query, paramCount); err != nil {
		return err
	}

	cleaned := StripLiterals(query)

	if kw := LeadingKeyword(query); kw != "SELECT" {
		return fmt.Errorf("only SELECT statements are permitted in READ_ONLY mode, got %s", kw)
	}
	if err := checkMultipleStatements(cleaned); err != nil {
		return err
	}
	if err := checkDenylist(cleaned, denylist, nil); err != nil {
		return err
	}
	if err := checkDenylist(cleaned, readOnlyDenylist, nil); err != nil {
		return err
	}
	if sysPrefix.MatchString(cleaned) {
		return fmt.Errorf("system procedure calls are not permitted")
	}
	if sysVariable.MatchString(cleaned) {
		return fmt.Errorf("system variables are not permitted")
	}
	return nil
}

// ValidateStatement screens a statement executed under FULL_ACCESS.
// allowedKeywords lists denylisted keywords the invoking tool is designed
// to emit (e.g. create_table passes CREATE).
func (v *Validator) ValidateStatement(query string, paramCount int, allowedKeywords ...string) error {
	if err := v.checkBounds(query, paramCount); err != nil {
		return err
	}

	allowed := make(map[string]bool, len(allowedKeywords))
	for _, kw := range allowedKeywords {
		allowed[strings.ToUpper(kw)] = true
	}

	cleaned := StripLiterals(query)
	if err := checkMultipleStatements(cleaned); err != nil {
		return err
	}
	return checkDenylist(cleaned, denylist, allowed)
}

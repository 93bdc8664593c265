package sql

import (
	"regexp"

	"github.com/syssam/quarry"
)

// identSegment is a bare word or a bracket, backtick or double-quote
// delimited name. Delimited names may contain spaces.
const identSegment = "(?:\\w+|\\[[\\w ]+\\]|`[\\w ]+`|\"[\\w ]+\")"

// validIdentifierRe validates column and table identifiers: "*", one or more
// dot-qualified segments, optionally ending in ".*".
var validIdentifierRe = regexp.MustCompile(`^(?:\*|` + identSegment + `(?:\.` + identSegment + `)*(?:\.\*)?)$`)

// sessionVarRe validates session variable names set by WithVar.
var sessionVarRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 256 && validIdentifierRe.MatchString(s)
}

// ValidateIdentifier returns an InvalidIdentifierError if s is not a safe
// column or table identifier.
func ValidateIdentifier(s string) error {
	if !isValidIdentifier(s) {
		return quarry.NewInvalidIdentifierError(s)
	}
	return nil
}

package sql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
)

// Rebind rewrites the @pN placeholders of a built statement into the
// native form of the dialect and returns the driver arguments:
//
//	postgres    $1, $2, ... (repeated names share a position)
//	mysql       ? per occurrence
//	sqlite      ? per occurrence
//	sqlserver   @pN kept, arguments passed as sql.Named
//
// Placeholders inside quoted strings and identifiers are left untouched.
// Parameters that the statement does not reference are not passed.
func Rebind(name, query string, params []dialect.Param) (string, []any, error) {
	switch name {
	case dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.SQLServer:
	default:
		return "", nil, quarry.NewUnsupportedDialectError(name, "placeholder binding")
	}
	byName := make(map[string]dialect.Param, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}
	var (
		sb       strings.Builder
		args     []any
		position = make(map[string]int)
	)
	sb.Grow(len(query))
	for i := 0; i < len(query); {
		c := query[i]
		switch c {
		case '\'', '"', '`', '[':
			end := closing(query, i)
			sb.WriteString(query[i:end])
			i = end
			continue
		case '@':
			if i+1 < len(query) && query[i+1] == '@' {
				sb.WriteString("@@")
				i += 2
				continue
			}
			n := placeholderLen(query[i:])
			if n == 0 {
				break
			}
			pname := query[i+1 : i+n]
			p, ok := byName[pname]
			if !ok {
				return "", nil, fmt.Errorf("dialect/sql: no parameter for placeholder @%s", pname)
			}
			switch name {
			case dialect.Postgres:
				pos, ok := position[pname]
				if !ok {
					args = append(args, p.Value)
					pos = len(args)
					position[pname] = pos
				}
				sb.WriteString("$" + strconv.Itoa(pos))
			case dialect.MySQL, dialect.SQLite:
				args = append(args, p.Value)
				sb.WriteByte('?')
			case dialect.SQLServer:
				if _, ok := position[pname]; !ok {
					args = append(args, sql.Named(pname, p.Value))
					position[pname] = len(args)
				}
				sb.WriteString(query[i : i+n])
			}
			i += n
			continue
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String(), args, nil
}

// placeholderLen returns the length of the @pN placeholder at the start of
// s, or 0.
func placeholderLen(s string) int {
	if len(s) < 3 || s[1] != 'p' {
		return 0
	}
	n := 2
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 2 {
		return 0
	}
	if n < len(s) && (isWordByte(s[n])) {
		return 0
	}
	return n
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// closing returns the index after the quoted section starting at i. An
// unterminated section extends to the end of the query.
func closing(query string, i int) int {
	end := query[i]
	if end == '[' {
		end = ']'
	}
	for j := i + 1; j < len(query); j++ {
		if query[j] != end {
			continue
		}
		// Doubled quotes are escapes.
		if end != ']' && j+1 < len(query) && query[j+1] == end {
			j++
			continue
		}
		return j + 1
	}
	return len(query)
}

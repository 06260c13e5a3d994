package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tidegate/sqlgen/dialect/sql"
)

// Tokenizer patterns, tried in priority order at each cursor position.
var (
	// A JSON function name: up to two lowercase-underscore prefixes,
	// the root token json/jsonb, up to two suffixes, then the argument
	// list. Matching advances the cursor to the opening parenthesis so
	// that the generic token rule still balances it.
	jsonFunctionRe = regexp.MustCompile(`(?i)^\s*((?:[a-z]+_){0,2}jsonb?(?:_[a-z]+){0,2})\([^)]*\)`)

	// The fixed JSON operator set: extraction arrows, containment,
	// existence, concatenation and delete-path.
	jsonOperatorRe = regexp.MustCompile(`(?i)^\s*(->>|->|@>|<@|\?[|&]|\?|\|\||#-)`)

	// A generic token: a quoted run (doubled-quote escaping inside), a
	// run of word/space characters, or one allowed punctuation char.
	jsonTokenRe = regexp.MustCompile("(?i)^\\s*(`(?:[^`]|``)*`|\"(?:[^\"]|\"\")*\"|'(?:[^']|'')*'|[\\w\\s]+|[().,;+-])")
)

// IsJSONExpression reports whether the string is a JSON-producing
// expression that should be used verbatim by the accessor compiler.
// It scans left to right; scanning stops at the first unrecognizable
// position. The expression is malformed when its parentheses are
// unbalanced or it contains a semicolon; a malformed expression that
// contains a JSON construct is an error, anything else is a plain path.
//
// The bracket-balance rule is a deliberately conservative heuristic: it
// rejects some syntactically valid nested constructs rather than trying
// to be a full SQL expression parser.
func IsJSONExpression(expr string) (bool, error) {
	var (
		idx          int
		open, closed int
		hasJSON      bool
		invalidToken bool
	)
	for idx < len(expr) {
		rest := expr[idx:]
		if m := jsonFunctionRe.FindString(rest); m != "" {
			idx += strings.Index(m, "(")
			hasJSON = true
			continue
		}
		if m := jsonOperatorRe.FindString(rest); m != "" {
			idx += len(m)
			hasJSON = true
			continue
		}
		if m := jsonTokenRe.FindStringSubmatch(rest); m != nil {
			switch m[1] {
			case "(":
				open++
			case ")":
				closed++
			case ";":
				invalidToken = true
			}
			if invalidToken {
				break
			}
			idx += len(m[0])
			continue
		}
		break
	}
	if (open != closed || invalidToken) && hasJSON {
		return false, parameterErrorf("invalid json statement: %s", expr)
	}
	return hasJSON, nil
}

// JSONPathQuery compiles a structured-value accessor for a single path.
// If the path is already a compiled JSON expression it is used verbatim;
// otherwise dot/array notation is normalized into a MySQL '$...' path
// extraction on the leading column. A non-nil value appends an equality
// comparison against its escaped literal.
func (g MySQL) JSONPathQuery(path string, value any) (string, error) {
	ok, err := IsJSONExpression(path)
	if err != nil {
		return "", err
	}
	s := path
	if !ok {
		column, sub := splitJSONPath(path)
		s = fmt.Sprintf("%s->>'$%s'", g.quote(column), sub)
	}
	if value != nil {
		s += " = " + g.escape(value)
	}
	return s, nil
}

// JSONCondition compiles a condition tree of path to value entries into
// an and-joined list of extraction equalities. Entries are emitted in
// sorted path order to keep the output deterministic.
func (g MySQL) JSONCondition(conds map[string]any) (string, error) {
	if len(conds) == 0 {
		return "", parameterErrorf("json condition requires at least one path")
	}
	paths := make([]string, 0, len(conds))
	for p := range conds {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		column, sub := splitJSONPath(p)
		value := sql.EscapeString(fmt.Sprint(conds[p]))
		parts = append(parts, fmt.Sprintf("%s->>'$%s' = '%s'", g.quote(column), sub, value))
	}
	return strings.Join(parts, " and "), nil
}

// CastType remaps a requested cast target type for MySQL. Booleans
// cannot be cast directly inside a JSON structure, so a boolean cast in
// a JSON context becomes char instead of decimal.
func (g MySQL) CastType(typ string, json bool) string {
	switch strings.ToLower(typ) {
	case "timestamp":
		return "datetime"
	case "boolean":
		if json {
			return "char"
		}
		return "decimal"
	case "double precision", "integer":
		return "decimal"
	case "text":
		return "char"
	default:
		return typ
	}
}

var (
	// ".N." and a trailing ".N" become bracketed array indices.
	jsonIndexMidRe = regexp.MustCompile(`\.(\d+)\.`)
	jsonIndexEndRe = regexp.MustCompile(`\.(\d+)$`)
)

// splitJSONPath normalizes dot/array notation and splits the leading
// column off the path: "items.0.id" becomes ("items", "[0].id") and
// "profile.name" becomes ("profile", ".name").
func splitJSONPath(path string) (column, sub string) {
	norm := path
	for {
		next := jsonIndexMidRe.ReplaceAllString(norm, "[$1].")
		if next == norm {
			break
		}
		norm = next
	}
	norm = jsonIndexEndRe.ReplaceAllString(norm, "[$1]")
	parts := strings.Split(norm, ".")
	head, rest := parts[0], strings.Join(parts[1:], ".")
	column = head
	var lead string
	if i := strings.Index(head, "["); i >= 0 {
		column, lead = head[:i], head[i:]
	}
	switch {
	case lead != "" && rest != "":
		sub = lead + "." + rest
	case lead != "":
		sub = lead
	case rest != "":
		sub = "." + rest
	}
	return column, sub
}

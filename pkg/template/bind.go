package template

import "strconv"

// BindDialect selects the placeholder syntax used for bound parameters.
// Every adapter is constructed with the dialect its driver understands, so
// statement generation stays mode-pure: the renderer never guesses.
type BindDialect int

// Bind dialects.
const (
	BindQuestion BindDialect = iota // "?" anonymous placeholders (sqlite, mysql)
	BindDollar                      // "$1" ordinal placeholders (postgres)
	BindColon                       // ":name" named placeholders (oracle-style)
)

func (d BindDialect) String() string {
	switch d {
	case BindQuestion:
		return "question"
	case BindDollar:
		return "dollar"
	case BindColon:
		return "colon"
	default:
		return "unknown"
	}
}

// Placeholder formats the placeholder for the given one-based ordinal and
// parameter name. The name is only used by named dialects.
func (d BindDialect) Placeholder(ordinal int, name string) string {
	switch d {
	case BindDollar:
		return "$" + strconv.Itoa(ordinal)
	case BindColon:
		return ":" + name
	default:
		return "?"
	}
}

package graph

import "strings"

// PrettySymbol shortens a demangled C++ callback symbol for display: spaces
// and std::allocator noise are removed, std::default_delete template
// arguments are dropped and std::_Bind placeholders are collapsed to "?".
func PrettySymbol(symbol string) string {
	pretty := strings.ReplaceAll(symbol, " ", "")
	pretty = strings.ReplaceAll(pretty, "_<std::allocator<void>>", "")

	const defaultDelete = "std::default_delete"
	if start := strings.Index(pretty, defaultDelete); start >= 0 {
		if end := matchingAngle(pretty, start+len(defaultDelete)); end >= 0 {
			pretty = pretty[:start] + pretty[end+1:]
		}
	}

	const bind = "std::_Bind<"
	if strings.HasPrefix(pretty, bind) {
		pretty = strings.TrimSuffix(strings.ReplaceAll(pretty, bind, ""), ">")
		if from := strings.Index(pretty, "*"); from >= 0 {
			if to := strings.Index(pretty[from:], ")"); to >= 0 {
				pretty = pretty[:from] + "?" + pretty[from+to+1:]
			}
		}
	}

	pretty = strings.ReplaceAll(pretty, ",>", ">")
	if rest, ok := strings.CutPrefix(pretty, "void"); ok {
		pretty = "void " + rest
	}
	if rest, ok := strings.CutSuffix(pretty, "const"); ok {
		pretty = rest + " const"
	}
	return pretty
}

// matchingAngle returns the index of the '>' closing the template argument
// list that opens at s[open], or -1.
func matchingAngle(s string, open int) int {
	if open >= len(s) || s[open] != '<' {
		return -1
	}
	level := 0
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '<':
			level++
		case '>':
			if level == 0 {
				return i
			}
			level--
		}
	}
	return -1
}

package recipe

import (
	"fmt"
	"regexp"
	"strings"
)

// Recipes embed Jinja-style directives in their YAML. Rendering happens
// against an empty external context: the only variables available to an
// interpolation are the ones bound by earlier {% set %} statements in the
// same file. The supported subset is what feedstock recipes actually use;
// anything else fails the render, which fails the parse for that one recipe.

// UndefinedVariableError reports an interpolation of a name with no prior
// {% set %} binding. It is the retryable render failure class: the caller
// may strip RECIPE_DIR directives and render once more.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined template variable %q", e.Name)
}

// DirectiveError reports template syntax outside the supported subset.
type DirectiveError struct {
	Directive string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("unsupported template directive %q", e.Directive)
}

var (
	templateTokenRegex = regexp.MustCompile(`\{\{.*?\}\}|\{%.*?%\}|\{#.*?#\}`)
	setStatementRegex  = regexp.MustCompile(`^set\s+([A-Za-z_]\w*)\s*=\s*(.+)$`)
	numberLiteralRegex = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	identifierRegex    = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	leadingIdentRegex  = regexp.MustCompile(`^[A-Za-z_]\w*`)
	replaceFilterRegex = regexp.MustCompile(`^replace\(\s*['"](.*?)['"]\s*,\s*['"](.*?)['"]\s*\)$`)

	// The benign environment-relative directive class: interpolations of the
	// recipe-directory path followed by a path separator. Stripping these is
	// the one recovery attempted after an undefined-variable failure.
	recipeDirRegex = regexp.MustCompile(`\{\{ (environ\[")?RECIPE_DIR("\])? \}\}/`)
)

// renderTemplate renders all template directives in text. {% set %}
// statements bind variables and emit nothing, {{ ... }} interpolations emit
// their value, {# ... #} comments are dropped, and all other text passes
// through byte for byte.
func renderTemplate(text string) (string, error) {
	vars := make(map[string]string)
	var sb strings.Builder
	last := 0

	for _, loc := range templateTokenRegex.FindAllStringIndex(text, -1) {
		sb.WriteString(text[last:loc[0]])
		out, err := evalToken(text[loc[0]:loc[1]], vars)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
		last = loc[1]
	}
	sb.WriteString(text[last:])

	return sb.String(), nil
}

func evalToken(tok string, vars map[string]string) (string, error) {
	switch {
	case strings.HasPrefix(tok, "{#"):
		return "", nil

	case strings.HasPrefix(tok, "{%"):
		inner := strings.TrimSpace(tok[2 : len(tok)-2])
		m := setStatementRegex.FindStringSubmatch(inner)
		if m == nil {
			return "", &DirectiveError{Directive: tok}
		}
		val, err := evalExpr(m[2], vars)
		if err != nil {
			return "", err
		}
		vars[m[1]] = val
		return "", nil

	default: // {{ ... }}
		inner := strings.TrimSpace(tok[2 : len(tok)-2])
		return evalExpr(inner, vars)
	}
}

// evalExpr evaluates a primary value followed by an optional filter chain.
func evalExpr(expr string, vars map[string]string) (string, error) {
	parts := splitFilters(expr)
	val, err := evalPrimary(strings.TrimSpace(parts[0]), vars)
	if err != nil {
		return "", err
	}
	for _, f := range parts[1:] {
		val, err = applyFilter(val, strings.TrimSpace(f))
		if err != nil {
			return "", err
		}
	}
	return val, nil
}

// splitFilters splits an expression on pipe characters that sit outside
// quotes and parentheses.
func splitFilters(expr string) []string {
	var parts []string
	var quote rune
	depth := 0
	start := 0

	for i, r := range expr {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == '|' && depth == 0:
			parts = append(parts, expr[start:i])
			start = i + 1
		}
	}
	parts = append(parts, expr[start:])
	return parts
}

func evalPrimary(expr string, vars map[string]string) (string, error) {
	if len(expr) >= 2 {
		if (expr[0] == '\'' && expr[len(expr)-1] == '\'') ||
			(expr[0] == '"' && expr[len(expr)-1] == '"') {
			return expr[1 : len(expr)-1], nil
		}
	}

	if numberLiteralRegex.MatchString(expr) {
		return expr, nil
	}

	if identifierRegex.MatchString(expr) {
		val, ok := vars[expr]
		if !ok {
			return "", &UndefinedVariableError{Name: expr}
		}
		return val, nil
	}

	// Anything identifier-headed resolves the identifier first, so that
	// subscript forms over unbound names (environ["..."]) classify as
	// undefined rather than unsupported.
	if ident := leadingIdentRegex.FindString(expr); ident != "" {
		if _, ok := vars[ident]; !ok {
			return "", &UndefinedVariableError{Name: ident}
		}
	}

	return "", &DirectiveError{Directive: expr}
}

func applyFilter(val, filter string) (string, error) {
	switch filter {
	case "lower":
		return strings.ToLower(val), nil
	case "upper":
		return strings.ToUpper(val), nil
	case "trim":
		return strings.TrimSpace(val), nil
	}

	if m := replaceFilterRegex.FindStringSubmatch(filter); m != nil {
		return strings.ReplaceAll(val, m[1], m[2]), nil
	}

	return "", &DirectiveError{Directive: filter}
}

// stripRecipeDirRefs removes the RECIPE_DIR interpolation class before a
// second render attempt.
func stripRecipeDirRefs(text string) string {
	return recipeDirRegex.ReplaceAllString(text, "")
}

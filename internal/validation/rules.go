package validation

import (
	"fmt"
	"strings"

	"github.com/nmorel/lexidraft/internal/contract"
)

// comparison is the parsed form of a "field1 OP field2" rule expression.
// Expressions are compiled into this tagged form instead of being evaluated
// as strings.
type comparison struct {
	lhs, op, rhs string
}

// Two-character operators must be tried before their one-character prefixes.
var comparisonOps = []string{">=", "<=", "==", ">", "<"}

func parseComparison(expr string) (*comparison, error) {
	for _, op := range comparisonOps {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		lhs := strings.TrimSpace(expr[:idx])
		rhs := strings.TrimSpace(expr[idx+len(op):])
		if lhs == "" || rhs == "" {
			return nil, fmt.Errorf("expression de comparaison incomplète: %q", expr)
		}
		return &comparison{lhs: lhs, op: op, rhs: rhs}, nil
	}
	return nil, fmt.Errorf("opérateur de comparaison introuvable dans %q", expr)
}

// evaluate returns false only when both operands are present and the
// comparison fails; a missing operand makes the rule vacuously satisfied.
func (c *comparison) evaluate(formData map[string]any) bool {
	lhsRaw, okLHS := stringValue(formData, c.lhs)
	rhsRaw, okRHS := stringValue(formData, c.rhs)
	if !okLHS || !okRHS {
		return true
	}

	if lhsNum, ok := parseNumber(lhsRaw); ok {
		if rhsNum, ok := parseNumber(rhsRaw); ok {
			return compareFloats(lhsNum, rhsNum, c.op)
		}
	}
	if lhsDate, ok := parseDate(lhsRaw); ok {
		if rhsDate, ok := parseDate(rhsRaw); ok {
			return compareFloats(float64(lhsDate.Unix()), float64(rhsDate.Unix()), c.op)
		}
	}
	return compareStrings(lhsRaw, rhsRaw, c.op)
}

func compareFloats(a, b float64, op string) bool {
	switch op {
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "==":
		return a == b
	}
	return true
}

func compareStrings(a, b, op string) bool {
	switch op {
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "==":
		return a == b
	}
	return true
}

func checkBusinessRules(formData map[string]any, rules []contract.ValidationRule) []contract.ValidationError {
	var errs []contract.ValidationError
	for _, rule := range rules {
		passed := true
		switch rule.Type {
		case contract.RuleRequired:
			for _, field := range rule.Fields {
				if isEmpty(formData, field) {
					passed = false
					break
				}
			}
		case contract.RuleComparison:
			cmp, err := parseComparison(rule.Rule)
			// An unparseable expression is a schema defect; do not fail the user.
			if err == nil {
				passed = cmp.evaluate(formData)
			}
		case contract.RuleCoherence:
			// Reserved extension point.
		}

		if !passed {
			errs = append(errs, contract.ValidationError{
				Field:   ruleField(rule),
				Message: ruleMessage(rule),
				Type:    contract.ErrorBusinessRule,
			})
		}
	}
	return errs
}

// ruleField attributes a failing rule to the first field it names.
func ruleField(rule contract.ValidationRule) string {
	if len(rule.Fields) > 0 {
		return rule.Fields[0]
	}
	if cmp, err := parseComparison(rule.Rule); err == nil {
		return cmp.lhs
	}
	return ""
}

func ruleMessage(rule contract.ValidationRule) string {
	if rule.ErrorMessage != "" {
		return rule.ErrorMessage
	}
	return "Règle de validation non respectée"
}

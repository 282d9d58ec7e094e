package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nodebase/engine/pkg/api"
)

type conditionRule struct {
	left     string
	operator string
	right    any
}

const (
	opEquals      = "equals"
	opNotEquals   = "not_equals"
	opContains    = "contains"
	opGreaterThan = "greater_than"
	opLessThan    = "less_than"

	combinatorAnd = "and"
	combinatorOr  = "or"
)

// Condition returns the executor for condition nodes. It evaluates the
// configured rules against the run context and routes the run by setting
// the branch key to "true" or "false". A false outcome is a successful
// evaluation, not a failure
func Condition() api.Executor {
	return api.ExecutorFunc(func(
		ctx context.Context, req *api.ExecuteRequest,
	) (api.Context, error) {
		req.Status.Status(req.NodeID, api.StatusLoading)

		rules, combinator, err := parseConditionConfig(req.Config)
		if err != nil {
			req.Status.Status(req.NodeID, api.StatusError)
			return nil, err
		}

		passed, err := evaluateRules(req.Context, rules, combinator)
		if err != nil {
			req.Status.Status(req.NodeID, api.StatusError)
			return nil, err
		}

		req.Status.Status(req.NodeID, api.StatusSuccess)

		out := api.Context{}
		if name, ok := req.Config.String("variableName"); ok && name != "" {
			out[name] = map[string]any{"passed": passed}
		}
		return out.With(api.BranchKey, fmt.Sprintf("%t", passed)), nil
	})
}

func parseConditionConfig(
	cfg api.NodeConfig,
) ([]conditionRule, string, error) {
	raw, ok := cfg["conditions"].([]any)
	if !ok || len(raw) == 0 {
		return nil, "", api.ConfigErr("condition node has no conditions")
	}

	rules := make([]conditionRule, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, "", api.ConfigErr("malformed condition entry")
		}
		left, _ := m["left"].(string)
		operator, _ := m["operator"].(string)
		right, hasRight := m["right"]
		if left == "" {
			return nil, "", api.ConfigErr("condition is missing a left operand")
		}
		if !hasRight {
			return nil, "", api.ConfigErr(
				"condition %q is missing a comparison value", left,
			)
		}
		rules = append(rules, conditionRule{
			left:     left,
			operator: operator,
			right:    right,
		})
	}

	combinator, _ := cfg.String("combinator")
	switch strings.ToLower(combinator) {
	case "":
		combinator = combinatorAnd
	case combinatorAnd, combinatorOr:
		combinator = strings.ToLower(combinator)
	default:
		return nil, "", api.ConfigErr("unknown combinator: %s", combinator)
	}
	return rules, combinator, nil
}

func evaluateRules(
	c api.Context, rules []conditionRule, combinator string,
) (bool, error) {
	for _, rule := range rules {
		passed, err := evaluateRule(c, rule)
		if err != nil {
			return false, err
		}
		if combinator == combinatorOr && passed {
			return true, nil
		}
		if combinator == combinatorAnd && !passed {
			return false, nil
		}
	}
	return combinator == combinatorAnd, nil
}

// evaluateRule compares the value at the rule's dotted path against its
// right operand. Equality and contains compare string renderings; the
// ordering operators compare numerically
func evaluateRule(c api.Context, rule conditionRule) (bool, error) {
	left, err := lookupPath(c, rule.left)
	if err != nil {
		return false, err
	}

	switch rule.operator {
	case opEquals:
		return stringValue(left) == stringifyOperand(rule.right), nil
	case opNotEquals:
		return stringValue(left) != stringifyOperand(rule.right), nil
	case opContains:
		return strings.Contains(
			stringValue(left), stringifyOperand(rule.right),
		), nil
	case opGreaterThan, opLessThan:
		ln, rn, err := numericOperands(left, rule.right)
		if err != nil {
			return false, err
		}
		if rule.operator == opGreaterThan {
			return ln > rn, nil
		}
		return ln < rn, nil
	default:
		return false, api.ConfigErr("unknown operator: %s", rule.operator)
	}
}

func stringValue(res gjson.Result) string {
	if !res.Exists() {
		return ""
	}
	if res.Type == gjson.String {
		return res.Str
	}
	return res.Raw
}

func stringifyOperand(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// numericOperands coerces both sides of an ordering comparison. A left
// value that is not a number coerces to NaN, making both orderings false;
// a non-numeric right operand is a configuration error
func numericOperands(
	left gjson.Result, right any,
) (float64, float64, error) {
	rn, err := toFloat(right)
	if err != nil {
		return 0, 0, err
	}

	var ln float64
	switch left.Type {
	case gjson.Number:
		ln = left.Num
	case gjson.String:
		ln, err = strconv.ParseFloat(left.Str, 64)
		if err != nil {
			ln = math.NaN()
		}
	default:
		ln = math.NaN()
	}
	return ln, rn, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, api.ConfigErr("operand is not numeric: %q", n)
		}
		return f, nil
	default:
		return 0, api.ConfigErr("operand is not numeric: %v", v)
	}
}

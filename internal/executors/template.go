// Package executors provides the built-in node executors
package executors

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nodebase/engine/pkg/api"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// contextJSON renders a run context as JSON for path lookups
func contextJSON(c api.Context) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, api.ConfigErr("context not serializable: %w", err)
	}
	return data, nil
}

// lookupPath resolves a dotted path against the run context
func lookupPath(c api.Context, path string) (gjson.Result, error) {
	data, err := contextJSON(c)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(data, path), nil
}

// interpolate replaces {{path}} placeholders in a template with values
// resolved from the run context. Strings substitute raw; objects, arrays
// and other values substitute as JSON. An unresolvable path substitutes
// an empty string
func interpolate(tpl string, c api.Context) (string, error) {
	data, err := contextJSON(c)
	if err != nil {
		return "", err
	}
	out := placeholderPattern.ReplaceAllStringFunc(tpl, func(m string) string {
		path := strings.TrimSpace(placeholderPattern.FindStringSubmatch(m)[1])
		res := gjson.GetBytes(data, path)
		if !res.Exists() {
			return ""
		}
		if res.Type == gjson.String {
			return res.Str
		}
		return res.Raw
	})
	return out, nil
}

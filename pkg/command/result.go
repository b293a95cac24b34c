package command

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Result is the outcome of executing one command. A successful result never
// carries an error and a failed one never carries output.
type Result struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(action string, output any) Result {
	return Result{Action: action, Success: true, Output: output}
}

// Failed builds a failed result.
func Failed(action string, format string, args ...any) Result {
	return Result{Action: action, Success: false, Error: fmt.Sprintf(format, args...)}
}

// OutputJSON renders the output for logs. Strings are returned unquoted.
func (r Result) OutputJSON() string {
	if s, ok := r.Output.(string); ok {
		return s
	}
	data, err := json.Marshal(r.Output)
	if err != nil {
		return fmt.Sprintf("%v", r.Output)
	}
	return string(data)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

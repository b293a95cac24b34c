package parser

import (
	"encoding/json"
	"strings"

	"github.com/entrhq/webpilot/pkg/command"
)

// decodeCommandBlock reads commands from the body of a json code block. The
// body is either one {"action", "params"} object or an array of them; entries
// of any other shape are skipped.
func decodeCommandBlock(body string) []command.Command {
	var raw any
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case []any:
		var commands []command.Command
		for _, entry := range v {
			if cmd, ok := commandFromJSON(entry); ok {
				commands = append(commands, cmd)
			}
		}
		return commands
	default:
		if cmd, ok := commandFromJSON(v); ok {
			return []command.Command{cmd}
		}
	}
	return nil
}

func commandFromJSON(entry any) (command.Command, bool) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return command.Command{}, false
	}
	action, ok := obj["action"].(string)
	if !ok {
		return command.Command{}, false
	}
	params, ok := obj["params"].(map[string]any)
	if !ok {
		return command.Command{}, false
	}

	cmd := command.Command{Action: action, Params: make(map[string]string, len(params))}
	for k, v := range params {
		cmd.Params[k] = stringifyParam(v)
	}
	return cmd, true
}

// stringifyParam keeps strings as they are and uses JSON text for the rest.
func stringifyParam(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

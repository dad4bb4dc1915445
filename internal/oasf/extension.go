package oasf

import (
	"strings"
)

// MCPExtensionName is the namespaced feature that carries MCP server
// definitions. Matching is by substring on "runtime/mcp" so schema hosts
// can vary.
const MCPExtensionName = "schema.oasf.agntcy.org/features/runtime/mcp"

const cmdScheme = "cmd://"

// EncodeCommandURL packs a server command and its arguments into the
// synthetic cmd:// scheme used for the registry's API-endpoint field.
func EncodeCommandURL(command string, args []string) string {
	if command == "" {
		return ""
	}
	return cmdScheme + command + "?args=" + strings.Join(args, " ")
}

// DecodeCommandURL reverses EncodeCommandURL. The second return value is
// false when the input does not use the cmd:// scheme.
func DecodeCommandURL(apiURL string) (command string, args []string, ok bool) {
	if !strings.HasPrefix(apiURL, cmdScheme) {
		return "", nil, false
	}
	after := strings.TrimPrefix(apiURL, cmdScheme)
	command = after
	if i := strings.Index(after, "?args="); i >= 0 {
		command = after[:i]
		if argStr := after[i+len("?args="):]; argStr != "" {
			args = strings.Fields(argStr)
		}
	}
	return command, args, true
}

// BuildMCPExtension wraps a cmd:// API URL into a runtime/mcp extension with
// a single server definition. Returns nil when apiURL is not a command URL.
func BuildMCPExtension(apiURL string) *Extension {
	command, args, ok := DecodeCommandURL(apiURL)
	if !ok {
		return nil
	}
	if args == nil {
		args = []string{}
	}
	return &Extension{
		Name:    MCPExtensionName,
		Version: "v1.0.0",
		Data: map[string]any{
			"servers": map[string]any{
				"nanda-export": map[string]any{
					"command": command,
					"args":    args,
					"env":     map[string]any{},
				},
			},
		},
	}
}

// ExtractMCPCommandURL scans extensions for a runtime/mcp feature and
// re-encodes its first server definition as a cmd:// URL. Returns "" when no
// usable server is found.
func ExtractMCPCommandURL(extensions []Extension) string {
	for _, ext := range extensions {
		if !strings.Contains(ext.Name, "runtime/mcp") {
			continue
		}
		servers, ok := ext.Data["servers"].(map[string]any)
		if !ok {
			continue
		}
		for _, raw := range servers {
			server, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			command, _ := server["command"].(string)
			if command == "" {
				continue
			}
			return EncodeCommandURL(command, anyStrings(server["args"]))
		}
	}
	return ""
}

func anyStrings(raw any) []string {
	switch list := raw.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

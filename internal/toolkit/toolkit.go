package toolkit

import (
	"context"
	"log/slog"
	"sort"
)

// Toolkit routes requests to tools by tool-type name. It holds no
// cache and no operation logic; construction fixes the tool set and
// the map is read-only afterwards, so Execute is safe for concurrent
// use.
type Toolkit struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// New builds a Toolkit over a fixed set of tools. Nil entries are
// skipped so callers can pass the results of constructors that were
// allowed to fail.
func New(logger *slog.Logger, tools ...Tool) *Toolkit {
	table := make(map[string]Tool, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		table[t.Name()] = t
	}
	return &Toolkit{tools: table, logger: logger}
}

// Execute is the sole entry point for callers: it resolves the tool
// type and delegates to its Dispatch. Unknown tool types fail without
// touching any tool.
func (tk *Toolkit) Execute(ctx context.Context, toolType, operation, target string, opts Options) Result {
	t, ok := tk.tools[toolType]
	if !ok {
		return Errorf("Unsupported tool type: %s", toolType)
	}
	return t.Dispatch(ctx, operation, target, opts)
}

// Tool returns the registered tool for a type name.
func (tk *Toolkit) Tool(toolType string) (Tool, bool) {
	t, ok := tk.tools[toolType]
	return t, ok
}

// ToolTypes lists the registered tool-type names, sorted.
func (tk *Toolkit) ToolTypes() []string {
	names := make([]string, 0, len(tk.tools))
	for name := range tk.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

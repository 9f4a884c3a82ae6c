package dispatch

// ToolDef describes one action for capability listings: the WebSocket and
// reverse-connection transports serve it from tools/list, and the MCP
// transport converts it into its own tool registration.
type ToolDef struct {
	Name        string
	Description string
	Params      []ParamDef
}

// ParamDef is one input parameter of a tool.
type ParamDef struct {
	Name        string
	Type        string // "number", "string", "boolean"
	Description string
	Required    bool
}

// InputSchema renders the parameters as a JSON-schema object, the shape
// tools/list consumers expect.
func (t ToolDef) InputSchema() map[string]any {
	props := make(map[string]any, len(t.Params))
	var required []string
	for _, p := range t.Params {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var locatorParams = []ParamDef{
	{Name: "text", Type: "string", Description: "Match elements whose text contains this (case-insensitive)"},
	{Name: "contentDesc", Type: "string", Description: "Match by content description substring"},
	{Name: "resourceId", Type: "string", Description: "Match by exact resource ID"},
	{Name: "className", Type: "string", Description: "Match by class name (short or fully qualified)"},
	{Name: "index", Type: "number", Description: "Pick the n-th match when several elements match (default 0)"},
}

func withLocator(extra ...ParamDef) []ParamDef {
	return append(append([]ParamDef{}, locatorParams...), extra...)
}

// Tools is the canonical tool table. Order is the order tools/list reports.
func Tools() []ToolDef {
	return []ToolDef{
		{Name: "tap", Description: "Tap the screen at a coordinate", Params: []ParamDef{
			{Name: "x", Type: "number", Description: "X coordinate in device pixels"},
			{Name: "y", Type: "number", Description: "Y coordinate in device pixels"},
		}},
		{Name: "double_tap", Description: "Double-tap the screen at a coordinate", Params: []ParamDef{
			{Name: "x", Type: "number", Description: "X coordinate"},
			{Name: "y", Type: "number", Description: "Y coordinate"},
		}},
		{Name: "long_press", Description: "Press and hold at a coordinate", Params: []ParamDef{
			{Name: "x", Type: "number", Description: "X coordinate"},
			{Name: "y", Type: "number", Description: "Y coordinate"},
			{Name: "duration", Type: "number", Description: "Hold duration in ms (default 1000)"},
		}},
		{Name: "swipe", Description: "Swipe between two coordinates", Params: []ParamDef{
			{Name: "startX", Type: "number", Description: "Start X"},
			{Name: "startY", Type: "number", Description: "Start Y"},
			{Name: "endX", Type: "number", Description: "End X"},
			{Name: "endY", Type: "number", Description: "End Y"},
			{Name: "duration", Type: "number", Description: "Swipe duration in ms (default 300, clamped to 10..5000)"},
		}},
		{Name: "global", Description: "Perform a system navigation action (back, home, recents)", Params: []ParamDef{
			{Name: "actionId", Type: "number", Description: "1=back 2=home 3=recents 4=notifications"},
		}},
		{Name: "launch_app", Description: "Launch an application", Params: []ParamDef{
			{Name: "package", Type: "string", Description: "Package name", Required: true},
			{Name: "activity", Type: "string", Description: "Explicit activity component"},
		}},
		{Name: "input", Description: "Type text into the focused editable field", Params: []ParamDef{
			{Name: "base64_text", Type: "string", Description: "Base64-encoded text to commit", Required: true},
			{Name: "clear", Type: "boolean", Description: "Replace existing content (default true)"},
		}},
		{Name: "clear", Description: "Empty the focused editable field"},
		{Name: "key", Description: "Send a key event", Params: []ParamDef{
			{Name: "key_code", Type: "number", Description: "Android key code"},
		}},
		{Name: "screen.dump", Description: "Dump the on-screen UI as a bounded element list"},
		{Name: "phone_state", Description: "Report the foreground app and keyboard visibility"},
		{Name: "packages.list", Description: "List installed packages"},
		{Name: "screenshot", Description: "Capture the screen as PNG", Params: []ParamDef{
			{Name: "hideOverlay", Type: "boolean", Description: "Hide the on-device overlay first (default true)"},
			{Name: "scale", Type: "number", Description: "Downscale factor between 0 and 1"},
		}},
		{Name: "wait", Description: "Wait until an element appears or disappears", Params: withLocator(
			ParamDef{Name: "gone", Type: "boolean", Description: "Wait for the element to disappear instead"},
			ParamDef{Name: "timeout", Type: "number", Description: "Max wait in ms"},
			ParamDef{Name: "interval", Type: "number", Description: "Poll interval in ms"},
		)},
		{Name: "element.find", Description: "Find elements by attribute", Params: withLocator()},
		{Name: "element.click", Description: "Tap an element located by attribute", Params: withLocator()},
		{Name: "element.double_tap", Description: "Double-tap an element located by attribute", Params: withLocator()},
		{Name: "element.long_press", Description: "Long-press an element located by attribute", Params: withLocator(
			ParamDef{Name: "duration", Type: "number", Description: "Hold duration in ms (default 1000)"},
		)},
		{Name: "element.set_text", Description: "Focus an element and type into it", Params: withLocator(
			ParamDef{Name: "value", Type: "string", Description: "Text to commit", Required: true},
			ParamDef{Name: "clear", Type: "boolean", Description: "Replace existing content (default true)"},
		)},
		{Name: "element.scroll", Description: "Scroll within an element", Params: withLocator(
			ParamDef{Name: "direction", Type: "string", Description: "up, down, left, or right (default down)"},
		)},
		{Name: "element.drag", Description: "Drag an element to a coordinate", Params: withLocator(
			ParamDef{Name: "endX", Type: "number", Description: "Destination X"},
			ParamDef{Name: "endY", Type: "number", Description: "Destination Y"},
			ParamDef{Name: "duration", Type: "number", Description: "Drag duration in ms (default 500)"},
		)},
		{Name: "element.toggle_checkbox", Description: "Toggle a checkable element", Params: withLocator()},
	}
}

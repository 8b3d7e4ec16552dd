package connector

// Registry is the orchestrator's homogeneous ordered sequence of
// connectors — a plain slice, per the "polymorphic capability, no
// inheritance" design note: concrete connectors are record values, and the
// orchestrator needs nothing more than this slice to drive them all.
type Registry []Connector

// Default returns the full roster of concrete connectors this build knows
// about, in a stable order. generic_jsonl is always last so a
// higher-confidence concrete connector wins detect() ties.
func Default() Registry {
	return Registry{
		NewClaudeCode(),
		NewCodex(),
		NewCursor(),
		NewCursorAgent(),
		NewAider(),
		NewContinueDev(),
		NewWindsurf(),
		NewAmp(),
		NewOpenCode(),
		NewGeminiCLI(),
		NewGenericJSONL(),
	}
}

// BySlug looks up a connector by its Slug().
func (r Registry) BySlug(slug string) (Connector, bool) {
	for _, c := range r {
		if c.Slug() == slug {
			return c, true
		}
	}
	return nil, false
}

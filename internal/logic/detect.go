package logic

import (
	"fmt"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/merge"
)

// IsSplitSchema reports whether t looks like v3 base or v1 study logic rather
// than the unsplit legacy shape.
func IsSplitSchema(t domain.RawLogic) bool {
	if len(t) == 0 {
		return false
	}
	if v, ok := t["version"].(string); ok && (v == domain.AgentLogicVersion || v == domain.StudyLogicVersion) {
		return true
	}
	if has(t, "general") && has(t, "report") && has(t, "impression") {
		return true
	}
	return has(t, "study_report") || has(t, "study_impression")
}

func has(t domain.RawLogic, key string) bool {
	_, ok := t[key]
	return ok
}

// DetectSchema picks the prompt path for a pair of persisted layers.
func DetectSchema(base, study domain.RawLogic) domain.SchemaKind {
	if IsSplitSchema(base) || IsSplitSchema(study) {
		return domain.SchemaSplit
	}
	return domain.SchemaLegacy
}

// EffectiveBase deep-merges the user's base layer over the global layer and
// decodes the result. Missing layers contribute nothing.
func EffectiveBase(global, base domain.RawLogic) (*domain.AgentLogic, error) {
	out := &domain.AgentLogic{}
	tree := merge.Merge(normalizeRouting(global, "report"), normalizeRouting(base, "report"))
	if err := merge.Decode(tree, out); err != nil {
		return nil, fmt.Errorf("decode base logic: %w", err)
	}
	return out, nil
}

// DecodeStudy decodes a persisted study layer; nil in, nil out.
func DecodeStudy(t domain.RawLogic) (*domain.StudySpecificLogic, error) {
	if len(t) == 0 {
		return nil, nil
	}
	out := &domain.StudySpecificLogic{}
	if err := merge.Decode(normalizeRouting(t, "study_report"), out); err != nil {
		return nil, fmt.Errorf("decode study logic: %w", err)
	}
	return out, nil
}

// DecodeMerged reads legacy logic as if it were already composed.
func DecodeMerged(t domain.RawLogic) (*domain.MergedLogic, error) {
	if len(t) == 0 {
		return nil, nil
	}
	out := &domain.MergedLogic{}
	if err := merge.Decode(normalizeRouting(t, "report"), out); err != nil {
		return nil, fmt.Errorf("decode legacy logic: %w", err)
	}
	return out, nil
}

// normalizeRouting rewrites a fixed-key anatomic_routing_rules object under
// section into the list form, moving its true flags onto the section's
// custom_rules. t is returned unchanged when there is nothing to rewrite.
func normalizeRouting(t domain.RawLogic, section string) domain.RawLogic {
	sec, ok := t[section].(map[string]any)
	if !ok {
		return t
	}
	raw, ok := sec["anatomic_routing_rules"].(map[string]any)
	if !ok {
		return t
	}
	routes, custom := MigrateRoutingRules(raw)

	out := merge.Clone(t)
	sec = out[section].(map[string]any)
	list := make([]any, 0, len(routes))
	for _, r := range routes {
		entry := map[string]any{"condition": r.Condition, "route_to": r.RouteTo}
		if r.Description != "" {
			entry["description"] = r.Description
		}
		list = append(list, entry)
	}
	sec["anatomic_routing_rules"] = list
	if len(custom) > 0 {
		var existing []any
		switch v := sec["custom_rules"].(type) {
		case []any:
			existing = v
		case []string:
			for _, c := range v {
				existing = append(existing, c)
			}
		}
		for _, c := range custom {
			existing = append(existing, c)
		}
		sec["custom_rules"] = existing
	}
	return out
}

package logic

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/radreport-mcp-server/internal/domain"
)

// MigrateLegacy converts an unsplit v2 (or older) logic object into a v3 base
// layer. Unknown keys are dropped; recognised ones overlay the v3 defaults.
func MigrateLegacy(legacy domain.RawLogic) *domain.AgentLogic {
	out := DefaultAgentLogic()
	if len(legacy) == 0 {
		return out
	}

	if v, ok := firstBool(legacy, "formatting.use_bullet_points", "use_bullet_points", "bullet_points"); ok {
		out.Report.Formatting.UseBulletPoints = v
	}
	if v, ok := firstBool(legacy, "formatting.preserve_template_punctuation", "preserve_template_punctuation", "preserve_punctuation"); ok {
		out.Report.Formatting.PreserveTemplatePunctuation = v
	}
	if v, ok := firstBool(legacy, "formatting.prevent_unnecessary_capitalization", "prevent_unnecessary_capitalization"); ok {
		out.Report.Formatting.PreventUnnecessaryCapitalization = v
	}
	if v, ok := firstBool(legacy, "language.expand_lesion_descriptions", "expand_lesion_descriptions", "expand_lesions"); ok {
		out.Report.Language.ExpandLesionDescriptions = v
	}

	if s, ok := lookup(legacy, "tone").(string); ok && s != "" {
		out.General.Tone.Style = s
	}

	if v, ok := firstBool(legacy, "impression.numbered", "impression_numbered", "numbered_impression"); ok {
		if v {
			out.Impression.Format.Style = domain.ImpressionNumbered
		} else {
			out.Impression.Format.Style = domain.ImpressionBullets
		}
	}
	if s, ok := lookup(legacy, "impression.spacing").(string); ok && s != "" {
		out.Impression.Format.Spacing = s
	}
	if phrase := firstString(legacy, "impression.opening_phrase", "required_opening_phrase", "opening_phrase"); phrase != "" {
		out.Impression.RequiredOpeningPhrase = &domain.OpeningPhrase{Enabled: true, Phrase: phrase}
	}

	out.Impression.ExcludeByDefault = exclusions(lookup(legacy, "exclude_by_default"))
	out.Report.Corrections.Rules = corrections(legacy["corrections"])
	out.Report.CustomRules = stringList(legacy["custom_rules"])

	routing, extra := MigrateRoutingRules(legacy["anatomic_routing_rules"])
	out.Report.AnatomicRoutingRules = routing
	out.Report.CustomRules = append(out.Report.CustomRules, extra...)

	out.CustomInstructions = stringList(legacy["custom_instructions"])
	return out
}

// MigrateRoutingRules accepts either the canonical rule list or the old
// fixed-key object, such as {"loose_bodies": "joint", "group_pathology_by_type": true}.
// String values become routing rules; true booleans become custom rules.
// Object keys are visited in sorted order.
func MigrateRoutingRules(raw any) ([]domain.AnatomicRoutingRule, []string) {
	switch v := raw.(type) {
	case []any:
		var out []domain.AnatomicRoutingRule
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			r := domain.AnatomicRoutingRule{
				Condition:   str(m["condition"]),
				RouteTo:     str(m["route_to"]),
				Description: str(m["description"]),
			}
			if r.Condition != "" && r.RouteTo != "" {
				out = append(out, r)
			}
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var out []domain.AnatomicRoutingRule
		var custom []string
		for _, k := range keys {
			switch val := v[k].(type) {
			case string:
				if val != "" {
					out = append(out, domain.AnatomicRoutingRule{Condition: domain.Humanize(k), RouteTo: val})
				}
			case bool:
				if val {
					custom = append(custom, sentence(domain.Humanize(k)))
				}
			case map[string]any:
				if to := str(val["route_to"]); to != "" {
					out = append(out, domain.AnatomicRoutingRule{
						Condition:   domain.Humanize(k),
						RouteTo:     to,
						Description: str(val["description"]),
					})
				}
			}
		}
		return out, custom
	}
	return nil, nil
}

func lookup(t domain.RawLogic, path string) any {
	var cur any = t
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func firstBool(t domain.RawLogic, paths ...string) (bool, bool) {
	for _, p := range paths {
		if b, ok := lookup(t, p).(bool); ok {
			return b, true
		}
	}
	return false, false
}

func firstString(t domain.RawLogic, paths ...string) string {
	for _, p := range paths {
		if s, ok := lookup(t, p).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return nil
}

func exclusions(v any) []domain.ConditionalExclusion {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []domain.ConditionalExclusion
	for _, e := range list {
		switch t := e.(type) {
		case string:
			if t != "" {
				out = append(out, domain.Exclude(t))
			}
		case map[string]any:
			if f := str(t["finding"]); f != "" {
				out = append(out, domain.ExcludeUnless(f, str(t["unless"])))
			}
		}
	}
	return out
}

func corrections(v any) []domain.CorrectionRule {
	if m, ok := v.(map[string]any); ok {
		v = m["rules"]
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []domain.CorrectionRule
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		r := domain.CorrectionRule{Find: str(m["find"]), Replace: str(m["replace"]), Description: str(m["description"])}
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

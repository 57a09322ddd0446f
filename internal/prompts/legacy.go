package prompts

import (
	"strings"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/logic"
)

// LegacyInput carries an unsplit logic object and the prompt text stored
// alongside it on older study records.
type LegacyInput struct {
	Findings       string
	Template       string
	Logic          domain.RawLogic
	GeneratePrompt string
	Global         *domain.GlobalSettings
}

// LegacyBuilder builds prompts for records that predate the split schema by
// migrating their logic in memory and compiling the result.
type LegacyBuilder struct {
	compiler *Compiler
}

// NewLegacyBuilder wraps c; nil uses the default compiler.
func NewLegacyBuilder(c *Compiler) *LegacyBuilder {
	if c == nil {
		c = defaultCompiler
	}
	return &LegacyBuilder{compiler: c}
}

// Build returns the prompt for in. A stored generate_prompt, either on the
// record or inside the legacy object, takes the place of the global preamble.
func (b *LegacyBuilder) Build(in LegacyInput) string {
	merged := logic.Compose(logic.MigrateLegacy(in.Logic), nil, nil)

	preamble := in.GeneratePrompt
	if strings.TrimSpace(preamble) == "" {
		if s, ok := in.Logic["generate_prompt"].(string); ok {
			preamble = s
		}
	}

	compileIn := Input{
		Findings: in.Findings,
		Template: in.Template,
		Logic:    merged,
	}
	if g := in.Global; g != nil {
		compileIn.GlobalFindingsRules = g.FindingsRules
		compileIn.GlobalImpressionRules = g.ImpressionRules
		if strings.TrimSpace(preamble) == "" {
			preamble = g.BasePrompt
		}
	}
	compileIn.GlobalBasePrompt = preamble
	return b.compiler.Compile(compileIn)
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/logic"
	"github.com/radreport-mcp-server/internal/merge"
	"github.com/radreport-mcp-server/internal/prompts"
	"github.com/radreport-mcp-server/internal/rules"
)

var errInvalid = errors.New("logic is invalid")

func newRootCmd() *cobra.Command {
	var output string
	root := &cobra.Command{
		Use:           "promptc",
		Short:         "Compile radiology report prompts from logic files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format for structured results: json or yaml")

	root.AddCommand(
		newCompileCmd(),
		newMergeCmd(&output),
		newParseRulesCmd(&output),
		newMigrateCmd(&output),
		newValidateCmd(&output),
	)
	return root
}

func newCompileCmd() *cobra.Command {
	var (
		findingsPath, templatePath string
		basePath, studyPath        string
		legacyPath, globalPath     string
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compose base and study logic and print the prompt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			findings, err := readText(findingsPath, in)
			if err != nil {
				return err
			}
			if strings.TrimSpace(findings) == "" {
				return domain.ErrEmptyFindings
			}
			template, err := readText(templatePath, in)
			if err != nil {
				return err
			}

			var global domain.GlobalSettings
			if err := readInto(globalPath, in, &global); err != nil {
				return err
			}
			baseTree, err := readTree(basePath, in)
			if err != nil {
				return err
			}
			studyTree, err := readTree(studyPath, in)
			if err != nil {
				return err
			}
			legacyTree, err := readTree(legacyPath, in)
			if err != nil {
				return err
			}

			compiler := prompts.NewCompiler()
			if logic.DetectSchema(baseTree, studyTree) == domain.SchemaLegacy {
				if legacyTree == nil {
					legacyTree = baseTree
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), prompts.NewLegacyBuilder(compiler).Build(prompts.LegacyInput{
					Findings: findings,
					Template: template,
					Logic:    legacyTree,
					Global:   &global,
				}))
				return err
			}

			base, err := logic.EffectiveBase(global.Logic, baseTree)
			if err != nil {
				return err
			}
			study, err := logic.DecodeStudy(studyTree)
			if err != nil {
				return err
			}
			legacy, err := logic.DecodeMerged(legacyTree)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), compiler.Compile(prompts.Input{
				Findings:              findings,
				Template:              template,
				Logic:                 logic.Compose(base, study, legacy),
				GlobalBasePrompt:      global.BasePrompt,
				GlobalFindingsRules:   global.FindingsRules,
				GlobalImpressionRules: global.ImpressionRules,
			}))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&findingsPath, "findings", "f", "-", "findings text file, - for stdin")
	f.StringVarP(&templatePath, "template", "t", "", "report template file")
	f.StringVar(&basePath, "base", "", "base logic file (YAML or JSON)")
	f.StringVar(&studyPath, "study", "", "study logic file")
	f.StringVar(&legacyPath, "legacy", "", "unsplit legacy logic file")
	f.StringVar(&globalPath, "global", "", "global settings file")
	return cmd
}

func newMergeCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "merge FILE FILE...",
		Short: "Deep-merge logic files left to right",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			trees := make([]merge.Tree, 0, len(args))
			for _, p := range args {
				t, err := readTree(p, cmd.InOrStdin())
				if err != nil {
					return err
				}
				trees = append(trees, t)
			}
			return writeValue(cmd.OutOrStdout(), *output, merge.All(trees...))
		},
	}
}

func newParseRulesCmd(output *string) *cobra.Command {
	var section string
	cmd := &cobra.Command{
		Use:   "parse-rules FILE",
		Short: "Parse rule text into corrections and custom rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			var p *rules.Parser
			switch section {
			case "findings":
				p = rules.ForFindings()
			case "impression":
				p = rules.ForImpression()
			default:
				return fmt.Errorf("unknown section %q", section)
			}
			return writeValue(cmd.OutOrStdout(), *output, p.ParseText(text))
		},
	}
	cmd.Flags().StringVar(&section, "section", "findings", "findings or impression")
	return cmd
}

func newMigrateCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate FILE",
		Short: "Convert unsplit legacy logic into base logic (lossy)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := readTree(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), *output, logic.MigrateLegacy(tree))
		},
	}
}

func newValidateCmd(output *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check base logic for required sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := readTree(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			res := logic.ValidateTree(tree)
			if err := writeValue(cmd.OutOrStdout(), *output, res); err != nil {
				return err
			}
			if !res.Valid {
				return errInvalid
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/vocabimport/pkg/config"
	"github.com/japaniel/vocabimport/pkg/dictionary"
)

func newDictionaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dictionary [path]",
		Short: "Import the ECDICT dictionary dump",
		Long: `Import an ECDICT CSV dump into the dictionary table. Existing words are
kept. Without a path, ecdict.csv is looked up in the current and parent
directory before asking for one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.importFile(cmd.Context(), dictionary.ECDICT, firstArg(args), "")
		},
	}
}

func newTranslationCmd(a *app) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "translation [path]",
		Short: "Import a word,translation list",
		Long: `Import a two-column word/translation list into words_unified under one
source. Rows without a translation are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.importFile(cmd.Context(), dictionary.Translation, firstArg(args), tag)
		},
	}
	cmd.Flags().StringVar(&tag, "source", dictionary.Translation.Name, "source tag the words are filed under")
	return cmd
}

func newSourcesCmd(a *app) *cobra.Command {
	var planPath string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Import the per-source exam vocabulary lists",
		Long: `Import every list of an import plan into words_unified, one source per
list. Without --plan the built-in 高中, 考研 and 托福 lists under
scripts/data are used. A list that cannot be read is reported and the
next one is imported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan := config.DefaultPlan()
			if planPath != "" {
				p, err := config.LoadPlan(planPath)
				if err != nil {
					return err
				}
				plan = p
			}
			return a.importPlan(cmd.Context(), plan)
		},
	}
	cmd.Flags().StringVar(&planPath, "plan", "", "YAML file listing the sources to import")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func logImportError(log *zap.Logger, tag, path string, err error) {
	log.Error("import failed", zap.String("source", tag), zap.String("file", path), zap.Error(err))
}

func describe(p dictionary.Profile) string {
	if p.IgnoreDuplicates {
		return fmt.Sprintf("%s (existing rows kept)", p.Table.Name)
	}
	return fmt.Sprintf("%s (existing rows overwritten)", p.Table.Name)
}

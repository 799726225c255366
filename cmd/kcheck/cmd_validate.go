package main

import (
	"fmt"

	"github.com/detekt/kcheck/internal/checks"
	"github.com/detekt/kcheck/internal/models"
	"github.com/detekt/kcheck/internal/validation"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <suite.yaml>",
		Short: "Validate a suite file",
		Long: `Validate a suite file against the suite JSON schema, then check the rules
the schema can't express (unique case ids, check parameters).`,
		Args: cobra.ExactArgs(1),
		RunE: validateCommandE,
	}
}

func validateCommandE(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	problems, err := validation.ValidateSuiteFile(path)
	if err != nil {
		return err
	}

	if len(problems) == 0 {
		spec, err := models.LoadSuiteSpec(path)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			problems = append(problems, checkParameters(spec)...)
		}
	}

	if len(problems) > 0 {
		fmt.Fprintf(out, "%s is invalid:\n", path)
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return &TestFailureError{Message: fmt.Sprintf("%d problem(s) found in %s", len(problems), path)}
	}

	fmt.Fprintf(out, "%s is valid\n", path)
	return nil
}

// checkParameters builds every check in the suite so that bad parameters are
// reported before a run.
func checkParameters(spec *models.SuiteSpec) []string {
	var problems []string
	if _, err := checks.CreateAll(spec.Checks); err != nil {
		problems = append(problems, fmt.Sprintf("suite checks: %v", err))
	}
	for i := range spec.Cases {
		c := &spec.Cases[i]
		if _, err := checks.CreateAll(c.Checks); err != nil {
			problems = append(problems, fmt.Sprintf("case '%s': %v", c.CaseID, err))
		}
	}
	return problems
}

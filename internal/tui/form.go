package tui

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/Joseda-hg/lazydesk/internal/helpdesk"
)

type formField struct {
	Label  string
	Value  string
	Toggle bool
}

const (
	fieldTitle = iota
	fieldExpression
	fieldPublic
	fieldReport
	fieldDefault
)

func buildFormFields(expression string) []formField {
	return []formField{
		{Label: "Title"},
		{Label: "Expression", Value: expression},
		{Label: "Public (space)", Value: "false", Toggle: true},
		{Label: "Report (space)", Value: "false", Toggle: true},
		{Label: "Default (space)", Value: "false", Toggle: true},
	}
}

func parseFormFields(fields []formField) (helpdesk.FilterInput, error) {
	public, err := parseToggle(fields[fieldPublic])
	if err != nil {
		return helpdesk.FilterInput{}, err
	}
	report, err := parseToggle(fields[fieldReport])
	if err != nil {
		return helpdesk.FilterInput{}, err
	}
	isDefault, err := parseToggle(fields[fieldDefault])
	if err != nil {
		return helpdesk.FilterInput{}, err
	}

	return helpdesk.FilterInput{
		Title:      strings.TrimSpace(fields[fieldTitle].Value),
		Expression: strings.TrimSpace(fields[fieldExpression].Value),
		Public:     public,
		Report:     report,
		Default:    isDefault,
	}, nil
}

func parseToggle(field formField) (bool, error) {
	value, err := cast.ToBoolE(strings.TrimSpace(field.Value))
	if err != nil {
		return false, fmt.Errorf("invalid %s", strings.ToLower(strings.Fields(field.Label)[0]))
	}
	return value, nil
}

func toggleValue(current string) string {
	value, err := cast.ToBoolE(current)
	if err != nil {
		return "true"
	}
	return cast.ToString(!value)
}

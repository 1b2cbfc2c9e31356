package main

import (
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/nijaru/yt-mp3/validation"
)

// Prompter asks for input interactively (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

// urlFromArgs returns the first argument or asks for a URL.
func urlFromArgs(args []string, prompter Prompter) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	input, err := prompter.Input("YouTube URL:", "")
	if err != nil {
		return "", err
	}
	if err := validation.ValidateURL(input); err != nil {
		return "", err
	}
	return input, nil
}

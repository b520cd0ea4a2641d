package view

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/atinyakov/bodylog/internal/models"
	"github.com/charmbracelet/huh"
)

// ErrMissingInput means weight or waist was left blank.
var ErrMissingInput = errors.New(MsgMissingInput)

// ParseMeasurement parses the raw weight and waist strings. Blank input yields
// ErrMissingInput; anything that is not a positive number yields
// models.ErrInvalidMeasurement.
func ParseMeasurement(weight, waist string) (float64, float64, error) {
	weight, waist = strings.TrimSpace(weight), strings.TrimSpace(waist)
	if weight == "" || waist == "" {
		return 0, 0, ErrMissingInput
	}
	w, err := parsePositive("weight", weight)
	if err != nil {
		return 0, 0, err
	}
	x, err := parsePositive("waist", waist)
	if err != nil {
		return 0, 0, err
	}
	return w, x, nil
}

func parsePositive(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsInf(v, 0) || !(v > 0) {
		return 0, fmt.Errorf("%w: %s %q", models.ErrInvalidMeasurement, name, s)
	}
	return v, nil
}

func validatePositive(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		_, err := parsePositive(name, strings.TrimSpace(s))
		return err
	}
}

// PromptMeasurement asks for weight and waist with an interactive form.
func PromptMeasurement() (float64, float64, error) {
	var weight, waist string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Weight (kg)").
				Value(&weight).
				Validate(validatePositive("weight")),
			huh.NewInput().
				Title("Waist (cm)").
				Value(&waist).
				Validate(validatePositive("waist")),
		),
	)
	if err := form.Run(); err != nil {
		return 0, 0, err
	}
	return ParseMeasurement(weight, waist)
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// generateOptions are the validated settings of the generate command.
type generateOptions struct {
	Difficulty model.Difficulty `validate:"required,oneof=Simple Medium Hard"`
	MCQ        int              `validate:"min=1,max=50"`
	Short      int              `validate:"min=1,max=50"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func parseGenerateOptions(v *viper.Viper) (generateOptions, error) {
	opts := generateOptions{
		Difficulty: model.Difficulty(v.GetString("difficulty")),
		MCQ:        v.GetInt("mcq"),
		Short:      v.GetInt("short"),
	}
	if d, err := model.ParseDifficulty(string(opts.Difficulty)); err == nil {
		opts.Difficulty = d
	}

	err := validate.Struct(opts)
	if err == nil {
		return opts, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return opts, err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("--%s: failed %s=%s (got %v)", flagName(fe.Field()), fe.Tag(), fe.Param(), fe.Value()))
	}
	return opts, fmt.Errorf("invalid options: %s", strings.Join(msgs, "; "))
}

func flagName(field string) string {
	return strings.ToLower(field)
}

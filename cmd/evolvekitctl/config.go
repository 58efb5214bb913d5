package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"evolvekit/pkg/evolvekit"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// loadRunRequest reads a YAML run file on top of base. Keys absent from the
// file keep the value from base.
func loadRunRequest(path string, base evolvekit.RunRequest) (evolvekit.RunRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return evolvekit.RunRequest{}, err
	}
	defer f.Close()

	req := base
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return evolvekit.RunRequest{}, fmt.Errorf("parse run file %s: %w", path, err)
	}
	return req, nil
}

// validateRunRequest canonicalizes the scape name in place and validates req.
func validateRunRequest(req *evolvekit.RunRequest) error {
	if req.Scape != "" {
		req.Scape = evolvekit.NormalizeScape(req.Scape)
	}
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s must satisfy %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", evolvekit.ErrInvalidArgument, strings.Join(msgs, "; "))
}

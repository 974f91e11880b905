package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
)

const (
	maxTitleLength       = 120
	maxDescriptionLength = 2000
	maxAccountNameLength = 64
	minPasswordLength    = 5
	maxPasswordLength    = 72 // bcrypt input limit
	maxBanReasonLength   = 280
	maxScoreValue        = 1 << 30
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("title", func(fl validator.FieldLevel) bool {
			_, err := validateTitle(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("accountname", func(fl validator.FieldLevel) bool {
			_, err := validateAccountName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return validatePassword(fl.Field().String()) == nil
		})
		_ = engine.RegisterValidation("signuprole", func(fl validator.FieldLevel) bool {
			role, ok := ParseRole(fl.Field().String())
			return ok && role != RoleAdmin
		})
		_ = engine.RegisterValidation("anyrole", func(fl validator.FieldLevel) bool {
			_, ok := ParseRole(fl.Field().String())
			return ok
		})
	})
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", errors.New("title is required")
	}
	if len(title) > maxTitleLength {
		return "", fmt.Errorf("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func validateDescription(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	if len(description) > maxDescriptionLength {
		return "", fmt.Errorf("description must be at most %d characters", maxDescriptionLength)
	}
	return description, nil
}

func validateAccountName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.New("name is required")
	}
	if len(name) > maxAccountNameLength {
		return "", fmt.Errorf("name must be at most %d characters", maxAccountNameLength)
	}
	return name, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", maxPasswordLength)
	}
	return nil
}

// slugFromTitle derives the immutable URL identifier for a game.
func slugFromTitle(title string) string {
	return slug.Make(title)
}

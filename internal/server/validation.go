package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxRoomNameLength = 64
	maxUserNameLength = 32
	maxCardLabel      = 16
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("roomname", func(fl validator.FieldLevel) bool {
			_, err := validateRoomName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			_, err := validateUserName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("cardlabel", func(fl validator.FieldLevel) bool {
			return validateCardLabel(fl.Field().String()) == nil
		})
	})
}

func validateRoomName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.New("room name is required")
	}
	if len(trimmed) > maxRoomNameLength {
		return "", fmt.Errorf("room name must be at most %d characters", maxRoomNameLength)
	}
	return trimmed, nil
}

func validateUserName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.New("name is required")
	}
	if len(trimmed) > maxUserNameLength {
		return "", fmt.Errorf("name must be at most %d characters", maxUserNameLength)
	}
	return trimmed, nil
}

func validateCardLabel(label string) error {
	if label == "" {
		return errors.New("card label is required")
	}
	if len(label) > maxCardLabel {
		return fmt.Errorf("card label must be at most %d characters", maxCardLabel)
	}
	return nil
}

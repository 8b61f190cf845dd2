package validator

import (
	"strings"

	"faceguard.io/application/utils"
	"github.com/go-playground/validator/v10"
)

func validateBase64Image(fl validator.FieldLevel) bool {
	payload := fl.Field().String()
	if payload == "" {
		return false
	}
	decoded, err := utils.DecodeBase64Image(payload)
	return err == nil && len(decoded) > 0
}

func validateImageFormat(fl validator.FieldLevel) bool {
	format := strings.ToLower(fl.Field().String())
	switch format {
	case "jpeg", "jpg", "png":
		return true
	}
	return false
}

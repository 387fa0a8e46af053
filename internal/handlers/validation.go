package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/salonhub/pkg/errors"
	"github.com/charlesng35/salonhub/pkg/response"
	appValidator "github.com/charlesng35/salonhub/pkg/validator"
)

const genericPayloadMessage = "invalid request payload"

// ruleMessages renders one failed rule. %[1]s is the field label, %[2]s the rule parameter.
var ruleMessages = map[string]string{
	"required": "%[1]s is required",
	"notblank": "%[1]s must not be blank",
	"email":    "%[1]s must be a valid email address",
	"min":      "%[1]s must be at least %[2]s characters",
	"max":      "%[1]s must be at most %[2]s characters",
	"oneof":    "%[1]s must be one of: %[2]s",
	"phone":    "%[1]s must be a phone number",
}

// bindAndValidate decodes the JSON body into dest and applies its validate
// tags. On failure the 400 envelope is written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("request body must be a JSON object"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}
	return true
}

// formatValidationError joins one sentence per failed rule, e.g.
// "business name must not be blank; password must be at least 6 characters".
func formatValidationError(err error) string {
	failures, ok := err.(appValidator.ValidationErrors)
	if !ok || len(failures) == 0 {
		return genericPayloadMessage
	}

	messages := make([]string, len(failures))
	for i, fe := range failures {
		label := fieldLabel(fe.Field)
		if tmpl, known := ruleMessages[fe.Tag]; known {
			messages[i] = fmt.Sprintf(tmpl, label, fe.Param)
			continue
		}
		messages[i] = fmt.Sprintf("%s is invalid (%s)", label, fe.Tag)
	}
	return strings.Join(messages, "; ")
}

func fieldLabel(name string) string {
	if name == "" {
		return "field"
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}

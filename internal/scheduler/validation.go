package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/aleister1102/marketwatch/internal/search"
	"github.com/go-playground/validator/v10"
)

// DefinitionValidator checks user supplied watcher definitions before they
// reach the repository or the registry.
type DefinitionValidator struct {
	validate     *validator.Validate
	defaultEmail string
}

// NewDefinitionValidator creates a validator. defaultEmail is the configured
// fallback address for EMAIL targets without one.
func NewDefinitionValidator(defaultEmail string) *DefinitionValidator {
	return &DefinitionValidator{
		validate:     validator.New(),
		defaultEmail: defaultEmail,
	}
}

// Validate returns *common.ValidationError for bad fields and
// *common.InvalidScheduleError for a malformed schedule.
func (v *DefinitionValidator) Validate(def models.WatcherDefinition) error {
	if err := search.ValidateCriteria(def.Query, def.MinPrice, def.MaxPrice); err != nil {
		return err
	}
	if _, err := ParseSchedule(strings.TrimSpace(def.Schedule)); err != nil {
		return err
	}

	if err := v.validate.Struct(def); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return common.NewValidationError(fe.Namespace(), fe.Value(), fmt.Sprintf("failed on the '%s' rule", fe.Tag()))
		}
		return common.NewValidationError("definition", nil, err.Error())
	}

	for i, target := range def.Notifications {
		if err := v.validateTarget(i, target); err != nil {
			return err
		}
	}
	return nil
}

func (v *DefinitionValidator) validateTarget(index int, target models.NotificationTarget) error {
	field := fmt.Sprintf("notifications[%d]", index)

	switch target.Kind {
	case models.NotificationKindDiscord:
		if target.Email != "" {
			return common.NewValidationError(field+".email", target.Email, "discord targets take a webhook_url only")
		}
		return nil
	case models.NotificationKindEmail:
		if target.WebhookURL != "" {
			return common.NewValidationError(field+".webhook_url", target.WebhookURL, "email targets take an email only")
		}
		if target.Email == "" && v.defaultEmail == "" {
			return common.NewValidationError(field+".email", target.Email, "email address is required when no default address is configured")
		}
		return nil
	default:
		return common.NewValidationError(field+".kind", target.Kind, "unknown notification kind")
	}
}

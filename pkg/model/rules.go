package model

import "fmt"

// Canned rule constructors mirror the presets the editing surface offers.
// Messages are the user-facing defaults; callers may override them before
// attaching the rule.

func RequiredRule() ValidationRule {
	return ValidationRule{Type: ValidationRequired, Message: "This field is required"}
}

func MinLengthRule(length int) ValidationRule {
	return ValidationRule{
		Type:    ValidationMinLength,
		Value:   length,
		Message: fmt.Sprintf("Minimum %d characters", length),
	}
}

func MaxLengthRule(length int) ValidationRule {
	return ValidationRule{
		Type:    ValidationMaxLength,
		Value:   length,
		Message: fmt.Sprintf("Maximum %d characters", length),
	}
}

func EmailRule() ValidationRule {
	return ValidationRule{Type: ValidationEmail, Message: "Invalid email format"}
}

func PasswordRule() ValidationRule {
	return ValidationRule{Type: ValidationPassword, Message: "Min 8 chars with number"}
}

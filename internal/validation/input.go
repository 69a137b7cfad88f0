package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinVisitorNameLength = 2
	MaxVisitorNameLength = 100
	MaxPurposeLength     = 200
	MaxReasonLength      = 500
	MinGroupSize         = 1
	MaxGroupSize         = 10
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// NormalizePhone убирает пробелы, дефисы и скобки из номера телефона.
func NormalizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

// ValidatePhone проверяет формат телефона: 10-15 цифр, опциональный плюс.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("телефон обязателен")
	}
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("некорректный формат телефона")
	}
	return nil
}

// ValidateEmail выполняет базовую проверку формата email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}
	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateGroupSize проверяет размер группы посетителей.
func ValidateGroupSize(size int) error {
	if size < MinGroupSize || size > MaxGroupSize {
		return fmt.Errorf("размер группы должен быть от %d до %d", MinGroupSize, MaxGroupSize)
	}
	return nil
}

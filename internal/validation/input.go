package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30

	MinServiceTitleLength       = 3
	MaxServiceTitleLength       = 100
	MinServiceDescriptionLength = 50
	MaxServiceDescriptionLength = 5000
	MaxProposalMessageLength    = 1000

	MinCategoryNameLength        = 2
	MaxCategoryNameLength        = 60
	MaxCategoryDescriptionLength = 500
	MaxJustificationLength       = 2000

	MaxChatMessageLength = 2000
	MaxTitleLength       = 100
	MaxBioLength         = 1000
	MaxURLLength         = 500
	MaxPrice             = 1000000.0
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateLength проверяет длину строки в символах.
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

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}
	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}
	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}
	return nil
}

// ValidateServiceTitle проверяет название сервиса.
func ValidateServiceTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("название сервиса обязательно")
	}
	return ValidateLength("название сервиса", title, MinServiceTitleLength, MaxServiceTitleLength)
}

// ValidateServiceDescription проверяет описание сервиса.
func ValidateServiceDescription(description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("описание сервиса обязательно")
	}
	return ValidateLength("описание сервиса", description, MinServiceDescriptionLength, MaxServiceDescriptionLength)
}

// ValidateCategoryName проверяет название категории.
func ValidateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("название категории обязательно")
	}
	return ValidateLength("название категории", name, MinCategoryNameLength, MaxCategoryNameLength)
}

// ValidateOptionalText проверяет необязательный текст на максимальную длину.
func ValidateOptionalText(fieldName string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return ValidateLength(fieldName, strings.TrimSpace(*value), 0, max)
}

// ValidatePrice проверяет цену сервиса.
func ValidatePrice(price *float64) error {
	if price == nil {
		return nil
	}
	if *price < 0 {
		return fmt.Errorf("цена не может быть отрицательной")
	}
	if *price > MaxPrice {
		return fmt.Errorf("цена не может превышать %.0f", MaxPrice)
	}
	return nil
}

// ValidateURL проверяет обязательную http(s) ссылку.
func ValidateURL(fieldName, link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return fmt.Errorf("%s обязательна", fieldName)
	}
	if err := ValidateLength(fieldName, link, 0, MaxURLLength); err != nil {
		return err
	}

	parsedURL, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("%s: некорректный формат URL", fieldName)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s должна начинаться с http:// или https://", fieldName)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s должна содержать доменное имя", fieldName)
	}
	return nil
}

// ValidateOptionalURL проверяет ссылку, если она передана.
func ValidateOptionalURL(fieldName string, link *string) error {
	if link == nil || strings.TrimSpace(*link) == "" {
		return nil
	}
	return ValidateURL(fieldName, *link)
}

// ValidateChatMessage проверяет текст сообщения чата.
// Пустой текст допустим только вместе с изображением.
func ValidateChatMessage(content string, hasImage bool) error {
	content = strings.TrimSpace(content)
	if content == "" && !hasImage {
		return fmt.Errorf("сообщение не может быть пустым")
	}
	return ValidateLength("сообщение", content, 0, MaxChatMessageLength)
}

// Package catproposal кодирует предложения категорий в текстовое поле заявки.
//
// Формат: "<Marker> <JSON>". Заявки без маркера считаются обычным текстом.
package catproposal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexus226/backend/internal/validation"
)

// Marker отличает предложение категории от свободного текста.
const Marker = "[CATEGORY_PROPOSAL]"

// SchemaVersion текущая версия полезной нагрузки.
const SchemaVersion = 1

// Kind тип предлагаемой категории.
type Kind string

const (
	KindCategory    Kind = "category"
	KindSubcategory Kind = "subcategory"
)

// Proposal предложение категории или подкатегории.
type Proposal struct {
	Version       int        `json:"v"`
	Kind          Kind       `json:"type" validate:"required,oneof=category subcategory"`
	Name          string     `json:"name" validate:"required"`
	Description   string     `json:"description"`
	ParentID      *uuid.UUID `json:"parent_id"`
	Justification string     `json:"justification" validate:"min=30"`
	Link          *string    `json:"link,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
}

// ParseError означает, что маркер есть, но содержимое повреждено.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catproposal: повреждённое предложение категории: %s: %v", e.Reason, e.Err)
	}
	return "catproposal: повреждённое предложение категории: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrInvalid оборачивает нарушения правил при кодировании.
var ErrInvalid = errors.New("catproposal: некорректное предложение категории")

// InvalidError описывает нарушение правила конкретным полем.
type InvalidError struct {
	Field   string
	Message string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

// Validate проверяет инварианты предложения.
func (p *Proposal) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Justification = strings.TrimSpace(p.Justification)

	if err := validation.Struct(p); err != nil {
		var fe *validation.FieldError
		if errors.As(err, &fe) {
			return &InvalidError{Field: fe.Field, Message: fe.Message}
		}
		return err
	}
	if err := validation.ValidateLength("название категории", p.Name, 0, validation.MaxCategoryNameLength); err != nil {
		return &InvalidError{Field: "name", Message: err.Error()}
	}
	if err := validation.ValidateLength("обоснование", p.Justification, 0, validation.MaxJustificationLength); err != nil {
		return &InvalidError{Field: "justification", Message: err.Error()}
	}
	if p.Kind == KindSubcategory && p.ParentID == nil {
		return &InvalidError{Field: "parent_id", Message: "для подкатегории нужна родительская категория"}
	}
	if p.Kind == KindCategory {
		p.ParentID = nil
	}
	if err := validation.ValidateOptionalURL("ссылка", p.Link); err != nil {
		return &InvalidError{Field: "link", Message: err.Error()}
	}
	return nil
}

// Encode проверяет предложение и кодирует его в строку с маркером.
// Текстовые поля обрезаются по краям, время подачи приводится к UTC
// без монотонных показаний, поэтому Decode возвращает ровно закодированное значение.
func Encode(p Proposal) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	p.Version = SchemaVersion
	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = time.Now()
	}
	p.SubmittedAt = p.SubmittedAt.UTC().Round(0)

	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("catproposal: encode: %w", err)
	}
	return Marker + " " + string(payload), nil
}

// IsCategoryProposal сообщает, помечено ли сообщение маркером.
func IsCategoryProposal(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), Marker)
}

// Decode разбирает сообщение заявки.
// ok=false без ошибки означает обычный текст. Повреждённое содержимое даёт *ParseError.
func Decode(raw string) (p Proposal, ok bool, err error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, Marker) {
		return Proposal{}, false, nil
	}

	body := strings.TrimSpace(strings.TrimPrefix(trimmed, Marker))
	if body == "" {
		return Proposal{}, true, &ParseError{Reason: "пустое содержимое"}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&p); err != nil {
		return Proposal{}, true, &ParseError{Reason: "некорректный JSON", Err: err}
	}
	if dec.More() {
		return Proposal{}, true, &ParseError{Reason: "лишние данные после JSON"}
	}

	// Ранние записи не содержали версии.
	if p.Version == 0 {
		p.Version = SchemaVersion
	}
	if p.Version > SchemaVersion {
		return Proposal{}, true, &ParseError{Reason: fmt.Sprintf("неизвестная версия схемы %d", p.Version)}
	}
	if err := p.Validate(); err != nil {
		return Proposal{}, true, &ParseError{Reason: "нарушены правила", Err: err}
	}
	return p, true, nil
}

// Patch набор редактируемых полей. nil означает «не менять».
type Patch struct {
	Kind          *Kind      `json:"type"`
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	ParentID      *uuid.UUID `json:"parent_id"`
	Justification *string    `json:"justification"`
	Link          *string    `json:"link"`
}

// Apply переносит заданные поля патча в предложение.
func (p Proposal) Apply(patch Patch) Proposal {
	if patch.Kind != nil {
		p.Kind = *patch.Kind
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.ParentID != nil {
		parent := *patch.ParentID
		p.ParentID = &parent
	}
	if patch.Justification != nil {
		p.Justification = *patch.Justification
	}
	if patch.Link != nil {
		if strings.TrimSpace(*patch.Link) == "" {
			p.Link = nil
		} else {
			link := *patch.Link
			p.Link = &link
		}
	}
	return p
}

// Update применяет патч к закодированному предложению и кодирует результат заново.
// Время подачи сохраняется.
func Update(raw string, patch Patch) (string, Proposal, error) {
	current, ok, err := Decode(raw)
	if err != nil {
		return "", Proposal{}, err
	}
	if !ok {
		return "", Proposal{}, &ParseError{Reason: "сообщение не является предложением категории"}
	}

	next := current.Apply(patch)
	encoded, err := Encode(next)
	if err != nil {
		return "", Proposal{}, err
	}
	decoded, _, err := Decode(encoded)
	if err != nil {
		return "", Proposal{}, err
	}
	return encoded, decoded, nil
}

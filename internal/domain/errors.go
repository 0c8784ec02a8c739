package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ドメインエラー定義
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrValidation        = errors.New("validation failed")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTerminalState     = errors.New("project is in a terminal state")
	ErrInvalidProgress   = errors.New("invalid progress")
	ErrVersionConflict   = errors.New("version conflict")
)

// FieldError は入力検証で見つかった1フィールド分のエラー。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError は入力検証エラーを全件まとめて保持する。
// UIが全エラーを一度に表示できるよう、最初の1件で打ち切らない。
type ValidationError struct {
	Fields []FieldError
}

// Add はフィールドエラーを追加する。
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors はエラーが1件以上あるかを返す。
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Err はエラーがあれば自身を、なければ nil を返す。
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Merge は err が ValidationError であれば、まだ含まれていないフィールドのエラーを取り込む。
func (e *ValidationError) Merge(err error) {
	var other *ValidationError
	if !errors.As(err, &other) {
		return
	}
	for _, f := range other.Fields {
		if !e.hasField(f.Field) {
			e.Fields = append(e.Fields, f)
		}
	}
}

func (e *ValidationError) hasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// NewValidationError は単一フィールドの ValidationError を生成する。
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// RuleError はライフサイクル・権限・参照に関する規則違反を表す。
// Kind には上記のセンチネルエラーのいずれかを設定する。
type RuleError struct {
	Kind   error
	Entity string
	Detail string
}

func (e *RuleError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Entity, e.Detail)
}

func (e *RuleError) Is(target error) bool {
	return target == e.Kind
}

func (e *RuleError) Unwrap() error {
	return e.Kind
}

// NotFoundError は参照先エンティティが存在しない場合のエラーを生成する。
func NotFoundError(entity, id string) error {
	return &RuleError{Kind: ErrNotFound, Entity: entity, Detail: id}
}

// PermissionError は権限不足のエラーを生成する。
func PermissionError(action Action, detail string) error {
	return &RuleError{Kind: ErrPermissionDenied, Entity: string(action), Detail: detail}
}

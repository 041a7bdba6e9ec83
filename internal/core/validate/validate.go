// Package validate 按顺序执行的输入校验链，每条规则独立判断并给出失败原因。
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"task-manager-api/internal/core/errs"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Rule 单条规则：Check 返回 false 即失败
type Rule[T any] struct {
	Field   string
	Message string
	Check   func(in *T) bool
}

type Chain[T any] []Rule[T]

// Run 执行全部规则，收集所有失败项
func (ch Chain[T]) Run(in *T) []FieldError {
	var out []FieldError
	for _, r := range ch {
		if !r.Check(in) {
			out = append(out, FieldError{Field: r.Field, Message: r.Message})
		}
	}
	return out
}

// Check 失败时返回 Validation 错误，消息取第一条
func (ch Chain[T]) Check(in *T) error {
	fe := ch.Run(in)
	if len(fe) == 0 {
		return nil
	}
	return errs.Validation(fe[0].Message, fe)
}

// String 针对字符串字段构造规则
func String[T any](field, msg string, get func(*T) string, pred func(string) bool) Rule[T] {
	return Rule[T]{Field: field, Message: msg, Check: func(in *T) bool { return pred(get(in)) }}
}

// Optional 字段为空时跳过
func Optional(pred func(string) bool) func(string) bool {
	return func(s string) bool { return s == "" || pred(s) }
}

func Required(s string) bool { return strings.TrimSpace(s) != "" }

func MinLen(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) >= n }
}

func Matches(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}

var v = validator.New(validator.WithRequiredStructEnabled())

func Email(s string) bool { return v.Var(s, "required,email") == nil }

package errors

import (
	"errors"
	"fmt"
)

// ── 领域错误分类 ──
//
// 各模块的业务错误通过 New 挂到以下分类之上，调用方统一用 errors.Is / errors.As 判定。

var (
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("资源不存在")

	// ErrInvalidTransition 考勤状态变更不合法
	ErrInvalidTransition = errors.New("考勤状态变更不合法")

	// ErrMeetingClosed 会议已定稿，考勤不可再修改。同时属于 ErrInvalidTransition。
	ErrMeetingClosed = fmt.Errorf("会议已定稿，考勤已锁定: %w", ErrInvalidTransition)

	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrConflict 并发写入版本不一致
	ErrConflict = ErrOptimisticLock
)

// ValidationError 输入校验失败，Reason 为面向调用方的原因描述
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "参数校验失败: " + e.Reason
}

// NewValidation 创建 ValidationError
func NewValidation(reason string) error {
	return &ValidationError{Reason: reason}
}

// kindError 携带业务描述的分类错误
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// New 创建归属于 kind 分类的业务错误
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// IsValidation 判断是否为 ValidationError，并返回原因
func IsValidation(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}

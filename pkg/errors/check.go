package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrCheckConflict 条件创建失败：同一 (participant, date) 已被其他调用方提交
var ErrCheckConflict = stderrors.New("check conflict: record already exists or participant changed")

// VerificationError 无法访问活动来源（网络、鉴权、熔断），与"没有活动"严格区分
type VerificationError struct {
	Handle string
	Status int
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("verify activity for %s: status %d: %v", e.Handle, e.Status, e.Err)
	}
	return fmt.Sprintf("verify activity for %s: %v", e.Handle, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// PostingError 发帖失败，只记录，不重试
type PostingError struct {
	Kind   string
	Status int
	Err    error
}

func (e *PostingError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("post %s: status %d: %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("post %s: %v", e.Kind, e.Err)
}

func (e *PostingError) Unwrap() error { return e.Err }

// PersistenceError 存储写入失败，本次检查作废，可整体重试
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsVerificationError(err error) bool {
	var target *VerificationError
	return stderrors.As(err, &target)
}

func IsPostingError(err error) bool {
	var target *PostingError
	return stderrors.As(err, &target)
}

func IsPersistenceError(err error) bool {
	var target *PersistenceError
	return stderrors.As(err, &target)
}

func IsCheckConflict(err error) bool {
	return stderrors.Is(err, ErrCheckConflict)
}

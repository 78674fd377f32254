package domain

import (
	"errors"
	"fmt"
)

// 业务错误码
const (
	StatusParamError               = 400
	StatusPrivMis                  = 403
	StatusEnvironmentIDNotExists   = 20001
	StatusVersionNameNotEmpty      = 20002
	StatusEnvironmentNotExists     = 20003
	StatusVersionExists            = 20004
	StatusVersionCopySrcNotExists  = 20005
	StatusVersionCopyDestNotExists = 20006
)

// BizError 携带状态码的业务失败，原样返回给调用方
type BizError struct {
	Status int
	Msg    string
}

func (e *BizError) Error() string {
	return fmt.Sprintf("biz error %d: %s", e.Status, e.Msg)
}

// NewBizError 创建业务错误
func NewBizError(status int, msg string) *BizError {
	return &BizError{Status: status, Msg: msg}
}

var (
	ErrEnvironmentIDNotExists   = NewBizError(StatusEnvironmentIDNotExists, "environment id is required")
	ErrVersionNameNotEmpty      = NewBizError(StatusVersionNameNotEmpty, "version name must not be empty")
	ErrEnvironmentNotExists     = NewBizError(StatusEnvironmentNotExists, "environment not exists")
	ErrPrivMis                  = NewBizError(StatusPrivMis, "permission denied")
	ErrVersionExists            = NewBizError(StatusVersionExists, "version already exists")
	ErrVersionRenameExists      = NewBizError(StatusParamError, "version already exists")
	ErrVersionCopySrcNotExists  = NewBizError(StatusVersionCopySrcNotExists, "source version not exists")
	ErrVersionCopyDestNotExists = NewBizError(StatusVersionCopyDestNotExists, "destination version not exists")
)

// IsBizError 判断 err 链上是否有指定状态码的业务错误
func IsBizError(err error, status int) bool {
	var be *BizError
	if errors.As(err, &be) {
		return be.Status == status
	}
	return false
}

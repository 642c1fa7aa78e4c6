package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error 服务端返回的业务错误
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("api: %s (HTTP %d)", e.Message, e.Status)
}

// IsUnauthorized 凭证过期或缺失，调用方应跳转重新认证
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsForbidden 无权访问该会话
func IsForbidden(err error) bool { return statusIs(err, http.StatusForbidden) }

// IsNotFound 会话或参与者不存在
func IsNotFound(err error) bool { return statusIs(err, http.StatusNotFound) }

// IsValidation 请求体校验失败
func IsValidation(err error) bool { return statusIs(err, http.StatusBadRequest) }

func statusIs(err error, status int) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == status
}

package service

import "errors"

// 业务层通用错误，handler 据此映射 HTTP 状态码。
var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrEmailTaken         = errors.New("email taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

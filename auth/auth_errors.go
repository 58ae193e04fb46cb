package auth

import "errors"

var (
	ErrLoginRequired = errors.New("login required")
	ErrAdminRequired = errors.New("admin role required")
)

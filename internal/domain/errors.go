package domain

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrIntegrity        = errors.New("chain integrity violation")
	ErrCrypto           = errors.New("malformed key or signature")
	ErrIO               = errors.New("storage i/o failure")
	ErrCorruptState     = errors.New("corrupt persisted state")
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrNotSigned        = errors.New("block not signed")
	ErrPolicyDenied     = errors.New("denied by signing policy")
)

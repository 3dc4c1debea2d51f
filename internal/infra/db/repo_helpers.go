package db

import (
	"errors"
	"fmt"

	"filechain/internal/domain"
)

var errDBUnavailable = fmt.Errorf("%w: db unavailable", domain.ErrIO)

func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIO, op, err)
}

package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicate reports a unique constraint violation. It needs gorm's TranslateError.
var ErrDuplicate = errors.New("duplicate record")

// ErrStale reports that a row changed between read and write.
var ErrStale = errors.New("record changed concurrently")

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

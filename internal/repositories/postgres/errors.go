package postgres

import (
	"errors"

	"github.com/yoockh/audition/internal/utils"
	"gorm.io/gorm"
)

// translate maps gorm errors onto the repository sentinels. The DB must be
// opened with TranslateError so that unique violations surface as
// gorm.ErrDuplicatedKey.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return utils.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return utils.ErrConflict
	default:
		return err
	}
}

package intake

import (
	"energy_study_backend/pkg/apperrors"
)

// Accountant проверяет количество файлов и квоту участника до записи.
type Accountant struct {
	MaxFiles      int
	MaxTotalBytes int64
}

// CheckCount - от 1 до MaxFiles файлов в отправке
func (a Accountant) CheckCount(n int) error {
	if n == 0 {
		return apperrors.ErrNoFiles
	}
	if n > a.MaxFiles {
		return apperrors.ErrTooManyFiles(a.MaxFiles)
	}
	return nil
}

// CheckQuota отклоняет отправку целиком, если уже сохраненное плюс
// входящее превышает квоту. incoming - заявленные размеры частей формы.
func (a Accountant) CheckQuota(existing, incoming int64) error {
	if existing+incoming > a.MaxTotalBytes {
		return apperrors.ErrStorageLimitExceeded(a.MaxTotalBytes)
	}
	return nil
}

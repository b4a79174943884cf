package usecase

import (
	"errors"

	"github.com/iho/gosplit/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound)
}

func isParticipantMissing(err error) bool {
	return errors.Is(err, domain.ErrParticipantNotFound)
}

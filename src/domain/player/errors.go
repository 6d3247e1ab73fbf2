package player

import (
	"errors"
	"fmt"

	"github.com/sandai/arena/src/domain/shared"
)

var (
	ErrPlayerNotFound   = fmt.Errorf("player not found: %w", shared.ErrNotFound)
	ErrNicknameRequired = errors.New("player nickname is required")
	ErrInvalidStats     = errors.New("player wins exceed matches played")
)

package auth

import (
	"context"
	"strconv"
	"strings"
)

// DevValidator trusts the client. initData is "id" or "id:name".
// It exists for local play and tests only.
type DevValidator struct{}

// NewDevValidator creates a validator that accepts any well-formed id.
func NewDevValidator() *DevValidator {
	return &DevValidator{}
}

func (v *DevValidator) Validate(_ context.Context, initData string) (*Identity, error) {
	idPart, name, _ := strings.Cut(initData, ":")
	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: id, UserName: DisplayName(strings.TrimSpace(name))}, nil
}

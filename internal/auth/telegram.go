package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"
)

// TelegramValidator checks Mini App initData signed with a bot token.
type TelegramValidator struct {
	secret []byte
	maxAge time.Duration
	clock  quartz.Clock
}

// NewTelegramValidator derives the signing key from botToken. A zero
// maxAge accepts any auth_date.
func NewTelegramValidator(botToken string, maxAge time.Duration, clock quartz.Clock) *TelegramValidator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return &TelegramValidator{
		secret: mac.Sum(nil),
		maxAge: maxAge,
		clock:  clock,
	}
}

type telegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

func (v *TelegramValidator) Validate(_ context.Context, initData string) (*Identity, error) {
	values, err := url.ParseQuery(initData)
	if err != nil || initData == "" {
		return nil, ErrInvalidToken
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrInvalidToken
	}
	values.Del("hash")

	if !hmac.Equal([]byte(v.sign(values)), []byte(hash)) {
		return nil, ErrInvalidToken
	}

	if v.maxAge > 0 {
		ts, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, ErrInvalidToken
		}
		if v.clock.Now().Sub(time.Unix(ts, 0)) > v.maxAge {
			return nil, ErrExpired
		}
	}

	var user telegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrInvalidToken, err)
	}
	if user.ID == 0 {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:   user.ID,
		UserName: DisplayName(user.Username, user.FirstName),
	}, nil
}

// Sign returns the hash field for values, which must not contain "hash".
func (v *TelegramValidator) Sign(values url.Values) string {
	return v.sign(values)
}

func (v *TelegramValidator) sign(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrInitDataInvalid is returned when web-app init data fails validation.
var ErrInitDataInvalid = errors.New("init data failed validation")

// ValidateInitData checks the HMAC-SHA256 signature Telegram attaches to
// WebApp init data and returns the authenticated user id. The secret key
// is HMAC-SHA256("WebAppData", botToken) per the Telegram WebApp spec.
func ValidateInitData(initData, botToken string) (int64, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInitDataInvalid, err)
	}

	received := values.Get("hash")
	if received == "" {
		return 0, fmt.Errorf("%w: hash missing", ErrInitDataInvalid)
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	checkString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(received)) {
		return 0, fmt.Errorf("%w: signature mismatch", ErrInitDataInvalid)
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return 0, fmt.Errorf("%w: user payload missing or unreadable", ErrInitDataInvalid)
	}
	return user.ID, nil
}

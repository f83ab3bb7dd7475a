package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBotToken = "7010116:AAH_TestTokenForUnitTests_abc"

	// Signed with testBotToken over the sorted auth_date/query_id/user
	// fields, per the Telegram WebApp data-check algorithm.
	testInitData = "auth_date=1712345678" +
		"&query_id=AAHdF6IQAAAAAN0XohDhrOrc" +
		"&user=%7B%22id%22%3A99281932%2C%22first_name%22%3A%22Andrew%22%2C%22last_name%22%3A%22R%22%2C%22username%22%3A%22rogue%22%2C%22language_code%22%3A%22en%22%7D" +
		"&hash=9631824365f7cf580067aff1e3fc75b0da6b035123bce4fd0f19fe062f3e7a28"
)

func TestValidateInitData_Valid(t *testing.T) {
	userID, err := ValidateInitData(testInitData, testBotToken)
	require.NoError(t, err)
	assert.Equal(t, int64(99281932), userID)
}

func TestValidateInitData_WrongToken(t *testing.T) {
	_, err := ValidateInitData(testInitData, "7010116:AAH_SomeOtherToken")
	assert.ErrorIs(t, err, ErrInitDataInvalid)
}

func TestValidateInitData_TamperedUser(t *testing.T) {
	tampered := strings.Replace(testInitData, "99281932", "11111111", 1)
	_, err := ValidateInitData(tampered, testBotToken)
	assert.ErrorIs(t, err, ErrInitDataInvalid)
}

func TestValidateInitData_MissingHash(t *testing.T) {
	noHash := strings.Split(testInitData, "&hash=")[0]
	_, err := ValidateInitData(noHash, testBotToken)
	assert.ErrorIs(t, err, ErrInitDataInvalid)
}

func TestValidateInitData_Garbage(t *testing.T) {
	_, err := ValidateInitData("not even a query string %zz", testBotToken)
	assert.ErrorIs(t, err, ErrInitDataInvalid)
}

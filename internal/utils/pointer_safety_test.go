package utils_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/teamtrack/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, 7, utils.Value(utils.Ptr(7)))
}

func TestQuerySetters(t *testing.T) {
	q := url.Values{}
	utils.SetString(q, "status", "")
	utils.SetString(q, "search", "login")
	utils.SetInt(q, "page", 0)
	utils.SetInt(q, "assigned_to", 12)
	utils.SetBool(q, "is_active", nil)
	utils.SetBool(q, "archived", utils.Ptr(false))

	require.Equal(t, "archived=false&assigned_to=12&search=login", q.Encode())
}

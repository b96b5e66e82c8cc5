package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	date, err := ParseDate("26.12.1986")
	require.NoError(t, err)
	require.Equal(t, "26.12.1986", date.String())

	for _, bad := range []string{"", "1986-12-26", "26.13.1986", "31.02.1986", "26.12.1986T00:00"} {
		_, err := ParseDate(bad)
		require.Error(t, err, bad)
	}
}

func TestDateJSON(t *testing.T) {
	date, err := ParseDate("01.04.1997")
	require.NoError(t, err)

	data, err := json.Marshal(date)
	require.NoError(t, err)
	require.Equal(t, `"01.04.1997"`, string(data))

	var decoded Date
	require.NoError(t, json.Unmarshal([]byte(`"17.04.1997"`), &decoded))
	require.Equal(t, "17.04.1997", decoded.String())

	require.Error(t, json.Unmarshal([]byte(`19970417`), &decoded))
}

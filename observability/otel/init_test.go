package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" api-key = secret ,,broken, =empty,tenant=corndex")
	require.Equal(t, map[string]string{"api-key": "secret", "tenant": "corndex"}, headers)
	require.Empty(t, ParseHeaders(""))
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		in       string
		insecure bool
		want     string
		wantInsc bool
	}{
		{"", false, "localhost:4318", false},
		{"collector:4318", false, "collector:4318", false},
		{"http://collector:4318/", false, "collector:4318", true},
		{"https://collector:4318", false, "collector:4318", false},
	}
	for _, tc := range cases {
		got, insecure := normalizeEndpoint(tc.in, tc.insecure)
		require.Equal(t, tc.want, got, tc.in)
		require.Equal(t, tc.wantInsc, insecure, tc.in)
	}
}

func TestInitDisabled(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "venued"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

package awss3

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/jlmsdev/webCarros/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "aws virtual host",
			cfg:  Config{Region: "sa-east-1", Bucket: "cars", AccessKey: "k", SecretKey: "s"},
			want: "https://cars.s3.sa-east-1.amazonaws.com/images/u1/abc",
		},
		{
			name: "compatible endpoint",
			cfg:  Config{Region: "us-east-1", Bucket: "cars", AccessKey: "k", SecretKey: "s", Endpoint: "http://localhost:9000/"},
			want: "http://localhost:9000/cars/images/u1/abc",
		},
		{
			name: "public base",
			cfg:  Config{Region: "us-east-1", Bucket: "cars", AccessKey: "k", SecretKey: "s", PublicBaseURL: "https://cdn.example.com"},
			want: "https://cdn.example.com/images/u1/abc",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewStorage(ctx, tc.cfg, logger.NewNop())
			require.NoError(t, err)

			got, err := s.URL(ctx, "images/u1/abc")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPreviewURL_IsPresigned(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(ctx, Config{Region: "us-east-1", Bucket: "cars", AccessKey: "k", SecretKey: "s", Endpoint: "http://localhost:9000"}, logger.NewNop())
	require.NoError(t, err)

	raw, err := s.PreviewURL(ctx, "images/u1/abc", 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/cars/images/u1/abc", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
}

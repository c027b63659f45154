package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildPublicIDKeepsExtension(t *testing.T) {
	now := time.Unix(1700000000, 0)

	require.Equal(t, "backup-2024-01-05T10-00-00-1700000000.json", buildPublicID("backup-2024-01-05T10:00:00.json", now))
	require.Equal(t, "pre-advance-1700000000.json", buildPublicID("pre advance", now))
	require.Equal(t, "backup-1700000000.json", buildPublicID("???", now))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}

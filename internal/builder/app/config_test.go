package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/folio/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here
	for _, k := range []string{"FOLIO_API_URL", "DRAFT_CACHE", "DRAFT_TTL", "MEDIA_PROVIDER", "AUTH_AUDIENCE", "AUTH_REQUIRED_SCOPES", "PORT"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "http://localhost:3000", cfg.APIURL)
	require.Equal(t, "memory", cfg.DraftCache)
	require.Equal(t, 24*time.Hour, cfg.DraftTTL)
	require.Empty(t, cfg.MediaProvider)
	require.Equal(t, "portbuilder", cfg.CloudinaryUploadPreset)
	require.Nil(t, cfg.Audience)
	require.Nil(t, cfg.RequiredScopes)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 5*time.Minute, cfg.HousekeepingInterval)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DRAFT_CACHE", "Redis")
	t.Setenv("DRAFT_TTL", "90")
	t.Setenv("AUTH_AUDIENCE", "folio-web, folio-cli ,")
	t.Setenv("AUTH_REQUIRED_SCOPES", "portfolio:write")
	t.Setenv("PORT", "not-a-port")
	t.Setenv("MEDIA_PROVIDER", "S3")

	cfg := LoadConfig()
	require.Equal(t, "redis", cfg.DraftCache)
	require.Equal(t, 90*time.Minute, cfg.DraftTTL, "bare integers are minutes")
	require.Equal(t, []string{"folio-web", "folio-cli"}, cfg.Audience)
	require.Equal(t, []string{"portfolio:write"}, cfg.RequiredScopes)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "s3", cfg.MediaProvider)
}

func TestInitMediaRejectsUnknownProvider(t *testing.T) {
	a := &Application{cfg: Config{MediaProvider: "dropbox"}, logger: discardLogger()}
	require.ErrorContains(t, a.initMedia(t.Context()), "unknown provider")

	a.cfg = Config{MediaProvider: "cloudinary"}
	require.ErrorContains(t, a.initMedia(t.Context()), "CLOUDINARY_CLOUD_NAME")

	a.cfg = Config{}
	require.NoError(t, a.initMedia(t.Context()))
	require.Nil(t, a.uploader)
}

func discardLogger() *slog.Logger { return slogx.Discard() }

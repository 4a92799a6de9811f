package api

// API limits and constants.
const (
	// MaxUploadSize is the maximum allowed size for item photos (10 MB).
	MaxUploadSize = 10 << 20

	// MaxManifestSize bounds tag manifest uploads.
	MaxManifestSize = 5 << 20

	// MaxWebhookSize bounds payment provider callbacks.
	MaxWebhookSize = 1 << 20
)

// Cache-Control header values.
const (
	CacheOneWeek = "public, max-age=604800"
	CacheNoStore = "no-cache"
)

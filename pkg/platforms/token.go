package platforms

import (
	"encoding/base64"
	"net/url"
	"strings"
)

const tokenFieldCount = 3

// Encode serializes a platform entity into the compact share identifier:
// URL-safe base64 over "platform:type:id" with padding stripped. Encoding
// is deterministic, so the same triple always yields the same token.
func Encode(p Platform, entityType EntityType, id string) string {
	identifier := string(p) + ":" + string(entityType) + ":" + id
	return base64.RawURLEncoding.EncodeToString([]byte(identifier))
}

// Decode parses a share token back into its platform entity. It first
// attempts the structured base64 format; when that fails structurally
// (decode error, wrong field count, unknown platform, bad id) the token
// is treated as a legacy percent-encoded raw URL and re-run through the
// classifier. The second return value is false only when neither stage
// recognizes the token.
func Decode(token string) (Classification, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Classification{}, false
	}

	if c, ok := decodeStructured(token); ok {
		return c, true
	}

	return decodeLegacy(token)
}

func decodeStructured(token string) (Classification, bool) {
	// Tokens are issued without padding but older clients may re-add it.
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Classification{}, false
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != tokenFieldCount {
		return Classification{}, false
	}

	platform := Platform(parts[0])
	if !KnownPlatform(platform) {
		return Classification{}, false
	}

	entityType, ok := normalizeEntityType(parts[1])
	if !ok {
		return Classification{}, false
	}

	if !validID(parts[2]) {
		return Classification{}, false
	}

	return Classification{Platform: platform, Type: entityType, ID: parts[2]}, true
}

// decodeLegacy handles share links issued before the structured encoding
// existed: percent-encoded (or raw) full platform URLs. These must keep
// resolving indefinitely.
func decodeLegacy(token string) (Classification, bool) {
	unescaped, err := url.QueryUnescape(token)
	if err != nil {
		unescaped = token
	}
	return Classify(unescaped)
}

// normalizeEntityType maps historical type spellings onto the canonical
// set. Tokens minted by earlier releases used "track" and "video".
func normalizeEntityType(s string) (EntityType, bool) {
	switch s {
	case "song", "track", "video":
		return EntitySong, true
	case "album":
		return EntityAlbum, true
	}
	return "", false
}

// ShareURL builds the outward-facing share page URL for an entity.
func ShareURL(baseURL string, p Platform, entityType EntityType, id string) string {
	return strings.TrimRight(baseURL, "/") + "/s/" + Encode(p, entityType, id)
}

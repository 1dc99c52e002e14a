package objectstore

import (
	"encoding/base64"
	"fmt"
	"mime"
	"path"
	"strings"

	"storybook-server/internal/models"
)

const (
	ImagePrefix = "story-images"
	AudioPrefix = "story-audio"
)

// ImageKey - ключ картинки страницы: story-images/{storyID}/{page}.{ext}
func ImageKey(storyID string, page int, contentType string) string {
	return fmt.Sprintf("%s/%s/%d.%s", ImagePrefix, storyID, page, extensionFor(contentType, "png"))
}

// AudioKey - ключ аудио страницы: story-audio/{storyID}/{page}.mp3
func AudioKey(storyID string, page int) string {
	return fmt.Sprintf("%s/%s/%d.mp3", AudioPrefix, storyID, page)
}

// StoryPrefixes возвращает все префиксы медиа одной истории.
func StoryPrefixes(storyID string) []string {
	return []string{ImagePrefix + "/" + storyID + "/", AudioPrefix + "/" + storyID + "/"}
}

// PublicURL строит ссылку вида <base>/media/<key>.
func PublicURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + "/media/" + key
}

// KeyFromPublicURL обратна PublicURL; false если ссылка не наша.
func KeyFromPublicURL(baseURL, url string) (string, bool) {
	prefix := strings.TrimSuffix(baseURL, "/") + "/media/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}

// IsRemoteURL - http(s) ссылки сохраняются как есть, без загрузки.
func IsRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// DecodeDataURL разбирает data:<mime>;base64,<payload>. Строка без префикса
// считается голым base64 с defaultType.
func DecodeDataURL(s, defaultType string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", fmt.Errorf("%w: empty media payload", models.ErrInvalidInput)
	}

	contentType := defaultType
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return nil, "", fmt.Errorf("%w: malformed data URL", models.ErrInvalidInput)
		}
		mediaType, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return nil, "", fmt.Errorf("%w: only base64 data URLs are supported", models.ErrInvalidInput)
		}
		if mediaType != "" {
			contentType = mediaType
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// клиенты иногда шлют без паддинга
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid base64 payload: %v", models.ErrInvalidInput, err)
		}
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty media payload", models.ErrInvalidInput)
	}
	return data, contentType, nil
}

// ContentTypeForKey угадывает тип по расширению ключа.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func extensionFor(contentType, fallback string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	return fallback
}

package database

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"storybook-server/internal/models"
)

const cursorSeparator = "_"

// EncodeCursor кодирует позицию (created_at, id) в непрозрачную строку.
func EncodeCursor(t time.Time, id uuid.UUID) string {
	if id == uuid.Nil || t.IsZero() {
		return ""
	}
	raw := strconv.FormatInt(t.UnixNano(), 10) + cursorSeparator + id.String()
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor обратна EncodeCursor. Пустой курсор - начало списка.
func DecodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	if cursor == "" {
		return time.Time{}, uuid.Nil, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: invalid cursor encoding", models.ErrInvalidInput)
	}
	valueStr, idStr, ok := strings.Cut(string(decoded), cursorSeparator)
	if !ok {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: invalid cursor format", models.ErrInvalidInput)
	}
	nanos, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: invalid cursor timestamp", models.ErrInvalidInput)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("%w: invalid cursor id", models.ErrInvalidInput)
	}
	return time.Unix(0, nanos).UTC(), id, nil
}

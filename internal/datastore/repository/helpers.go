package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// translateCreateError maps driver unique violations to ErrDuplicateKey.
// gorm only translates them when TranslateError is enabled, so the
// driver messages are matched as a fallback.
func translateCreateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry") {
		return ErrDuplicateKey
	}
	return err
}

// applyPaging applies limit and offset when positive.
func applyPaging(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

// likeEscape is the LIKE escape character; backslash is not portable
// because MySQL also treats it as a string literal escape.
const likeEscape = "!"

// likePattern escapes LIKE wildcards in s and wraps it for an upper-case
// contains match.
func likePattern(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return "%" + strings.ToUpper(r.Replace(s)) + "%"
}

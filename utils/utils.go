package utils

import (
	"errors"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/text/unicode/norm"
)

func IsDuplicateKey(err error) bool {
	// Preferred: typed error
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			log.Println("Error code", e.Code)
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	// Sometimes we might get a BulkWriteException
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	// Fallback
	msg := err.Error()
	return strings.Contains(msg, "E11000 duplicate key error")
}

func GenerateSlug(name string) string {
	// Normalize accents
	t := norm.NFD.String(name)
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue // remove accent marks
		}
		b.WriteRune(r)
	}

	s := strings.ToLower(b.String())

	// Replace non-alphanumeric with hyphen
	reg := regexp.MustCompile(`[^a-z0-9]+`)
	s = reg.ReplaceAllString(s, "-")

	// Trim hyphens
	s = strings.Trim(s, "-")

	return s
}

func ParseIntDefault(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// ParseLimitOffset reads limit/offset query values and clamps the limit to
// the configured ceiling.
func ParseLimitOffset(limitStr, offsetStr string) (int64, int64) {
	maxLimit, defaultLimit := GetDefaultQueryLimits()

	limit := ParseIntDefault(limitStr, defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := ParseIntDefault(offsetStr, 0)
	if offset < 0 {
		offset = 0
	}
	return int64(limit), int64(offset)
}

func GetDefaultQueryLimits() (int, int) {
	maxLimit, err := strconv.Atoi(os.Getenv("READ_QUERY_MAX_LIMIT"))
	if err != nil {
		maxLimit = 100
	}
	defaultLimit, err := strconv.Atoi(os.Getenv("DEFAULT_READ_QUERY_LIMIT"))
	if err != nil {
		defaultLimit = 20
	}
	return maxLimit, defaultLimit
}

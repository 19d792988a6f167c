package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type environment func(key string) string

func (env environment) getString(key, defaultValue string) string {
	if value := env(key); value != "" {
		return value
	}
	return defaultValue
}

func (env environment) getInt(key string, defaultValue int) (int, error) {
	value := env(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "%s: '%s' is not an integer", key, value)
	}
	return intValue, nil
}

func (env environment) getFloat(key string, defaultValue float64) (float64, error) {
	value := env(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "%s: '%s' is not a number", key, value)
	}
	return floatValue, nil
}

// ParseBuckets parses a comma-separated string of histogram bucket bounds
func ParseBuckets(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	buckets := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "bucket value '%s'", p)
		}
		buckets = append(buckets, f)
	}
	if err := validateBuckets(buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func validateBuckets(buckets []float64) error {
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return errors.Wrapf(ErrInvalidConfig, "buckets must be strictly increasing, got %v after %v", buckets[i], buckets[i-1])
		}
	}
	return nil
}

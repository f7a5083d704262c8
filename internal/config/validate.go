package config

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const digestPrefix = "sha256:"

var (
	tagPattern    = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)
	digestPattern = regexp.MustCompile(`^sha256:[a-f0-9]{64}$`)
)

// floatingTags are conventional tags that get re-pointed at new images.
var floatingTags = map[string]bool{
	"latest":  true,
	"stable":  true,
	"main":    true,
	"master":  true,
	"dev":     true,
	"develop": true,
	"edge":    true,
	"nightly": true,
	"current": true,
}

// IsImmutableTag reports whether tag pins a single image: a sha256 digest or
// a well-formed tag that is not a conventional floating tag.
func IsImmutableTag(tag string) bool {
	if strings.HasPrefix(tag, digestPrefix) {
		return digestPattern.MatchString(tag)
	}
	if !tagPattern.MatchString(tag) {
		return false
	}
	return !floatingTags[strings.ToLower(tag)]
}

// ImageTag returns the tag or digest of an image reference, or "" when the
// reference carries neither.
func ImageTag(image string) string {
	if i := strings.LastIndex(image, "@"); i >= 0 {
		return image[i+1:]
	}
	slash := strings.LastIndex(image, "/")
	colon := strings.LastIndex(image, ":")
	if colon > slash {
		return image[colon+1:]
	}
	return ""
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("immutable_tag", func(fl validator.FieldLevel) bool {
		return IsImmutableTag(fl.Field().String())
	})
	return v
}

// Validate checks the configuration. Task, trigger and network settings are
// only required when the feature flag is on.
func Validate(cfg *Config) error {
	v := newValidator()

	var err error
	if cfg.Enabled() {
		err = v.Struct(cfg)
	} else {
		err = v.StructExcept(cfg, "ECS", "Trigger", "Network")
	}
	if err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	return nil
}

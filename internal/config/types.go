package config

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/g5becks/blockparse/internal/textparse"
)

const DefaultMaxParallel = 3

// Config is the on-disk configuration: the parsing rules plus CLI
// behavior defaults.
type Config struct {
	Inputs      []string `koanf:"inputs"`
	MaxParallel int      `koanf:"max_parallel" validate:"gte=0,lte=64"`
	Rules       Rules    `koanf:"rules"`
	ConfigDir   string   `koanf:"-"`
}

// Rules mirrors textparse.Rules in TOML-friendly form. The structural
// prefixes must be non-empty and pairwise distinct; ambiguous prefixes
// are a configuration error caught here, not at parse time.
type Rules struct {
	BlockID         string `koanf:"block_id"          validate:"required"`
	BlockMeta       string `koanf:"block_meta"        validate:"required"`
	BlockEnd        string `koanf:"block_end"         validate:"required"`
	PackageMeta     string `koanf:"package_meta"      validate:"required"`
	Comment         string `koanf:"comment"`
	Delimiters      string `koanf:"delimiters"`
	RequireEnd      bool   `koanf:"require_end"`
	PackageMetaMode string `koanf:"package_meta_mode" validate:"omitempty,oneof=disallow allow close"`
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func (c *Config) ApplyDefaults() {
	defaults := textparse.DefaultRules()

	if c.MaxParallel == 0 {
		c.MaxParallel = DefaultMaxParallel
	}

	if c.Rules.BlockID == "" {
		c.Rules.BlockID = defaults.BlockIDPrefix
	}

	if c.Rules.BlockMeta == "" {
		c.Rules.BlockMeta = defaults.BlockMetaPrefix
	}

	if c.Rules.BlockEnd == "" {
		c.Rules.BlockEnd = defaults.BlockEndPrefix
	}

	if c.Rules.PackageMeta == "" {
		c.Rules.PackageMeta = defaults.PackageMetaPrefix
	}

	if c.Rules.Comment == "" {
		c.Rules.Comment = defaults.CommentPrefix
	}

	if c.Rules.Delimiters == "" {
		c.Rules.Delimiters = defaults.MetaDelimiters
	}

	if c.Rules.PackageMetaMode == "" {
		c.Rules.PackageMetaMode = "allow"
	}
}

func (c *Config) Validate() error {
	v := newValidator()

	if valErr := v.Struct(c); valErr != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(valErr, &validationErrors) {
			return oops.
				Code("CONFIG_INVALID").
				Wrapf(valErr, "validating config")
		}

		for _, fe := range validationErrors {
			return mapValidationError(fe)
		}
	}

	return c.Rules.validatePrefixes()
}

// validatePrefixes rejects structural prefixes that shadow each other
// exactly. The parser resolves partial overlaps by length priority, but
// identical prefixes cannot be told apart at all.
func (r Rules) validatePrefixes() error {
	fields := []struct {
		name   string
		prefix string
	}{
		{"block_id", r.BlockID},
		{"block_meta", r.BlockMeta},
		{"block_end", r.BlockEnd},
		{"package_meta", r.PackageMeta},
	}

	seen := map[string]string{}

	for _, field := range fields {
		if other, dup := seen[field.prefix]; dup {
			return oops.
				Code("RULES_AMBIGUOUS").
				With("field", field.name).
				With("conflicts_with", other).
				With("prefix", field.prefix).
				Hint("Give every structural prefix a distinct marker").
				Errorf("prefix %q is used by both %s and %s", field.prefix, other, field.name)
		}

		seen[field.prefix] = field.name
	}

	return nil
}

func mapValidationError(fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return oops.
			Code("RULES_INVALID").
			With("field", field).
			Hint("Structural prefixes must not be empty").
			Errorf("missing rules prefix %q", field)

	case "oneof":
		return oops.
			Code("RULES_INVALID").
			With("field", field).
			Hint("Supported modes: disallow, allow, close").
			Errorf("unknown package metadata mode")

	default:
		return oops.
			Code("CONFIG_INVALID").
			With("field", field).
			With("tag", fe.Tag()).
			Errorf("validation failed for field %q", field)
	}
}

// ToRules converts the on-disk form into the parser's rules.
func (c *Config) ToRules() textparse.Rules {
	mode := textparse.PackageMetaAllowInBlock

	switch c.Rules.PackageMetaMode {
	case "disallow":
		mode = textparse.PackageMetaDisallowInBlock
	case "close":
		mode = textparse.PackageMetaImplicitCloseBlock
	}

	return textparse.Rules{
		BlockIDPrefix:     c.Rules.BlockID,
		BlockMetaPrefix:   c.Rules.BlockMeta,
		BlockEndPrefix:    c.Rules.BlockEnd,
		PackageMetaPrefix: c.Rules.PackageMeta,
		CommentPrefix:     c.Rules.Comment,
		MetaDelimiters:    c.Rules.Delimiters,
		RequireBlockEnd:   c.Rules.RequireEnd,
		PackageMetaMode:   mode,
	}
}

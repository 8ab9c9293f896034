package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ArtifactsConfig configures the build artifacts distribution.
//
// Values are layered: TOML profile, then environment variables, then CDK context.
type ArtifactsConfig struct {
	BuildBucketArn     string `toml:"build_bucket_arn" validate:"required,startswith=arn:"`
	ManageBucketPolicy bool   `toml:"manage_bucket_policy"`
	IndexDocument      string `toml:"index_document" validate:"omitempty,max=255,excludesall=/"`
	Description        string `toml:"description" validate:"max=1024"`
}

// LoadProfile decodes a TOML profile. Unknown keys are rejected so typos do not silently
// fall back to defaults.
func LoadProfile(path string) (ArtifactsConfig, error) {
	var cfg ArtifactsConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return ArtifactsConfig{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := lo.Map(undecoded, func(k toml.Key, _ int) string { return k.String() })
		return ArtifactsConfig{}, fmt.Errorf("profile %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadArtifactsConfig merges every configuration source visible from scope and validates the result.
func LoadArtifactsConfig(scope constructs.Construct) (ArtifactsConfig, error) {
	vars, err := ParseEnvironmentVariables[ArtifactsEnvironmentVariables](scope)
	if err != nil {
		return ArtifactsConfig{}, fmt.Errorf("parsing environment: %w", err)
	}

	var cfg ArtifactsConfig
	profilePath := lo.CoalesceOrEmpty(contextString(scope, ProfileContextKey), vars.ProfilePath)
	if profilePath != "" {
		if cfg, err = LoadProfile(profilePath); err != nil {
			return ArtifactsConfig{}, err
		}
	}

	// environment overrides the profile
	cfg.BuildBucketArn = lo.CoalesceOrEmpty(vars.BuildBucketArn, cfg.BuildBucketArn)
	cfg.IndexDocument = lo.CoalesceOrEmpty(vars.IndexDocument, cfg.IndexDocument)
	if vars.ManageBucketPolicy != nil {
		cfg.ManageBucketPolicy = *vars.ManageBucketPolicy
	}

	// context overrides both
	cfg.BuildBucketArn = lo.CoalesceOrEmpty(contextString(scope, BuildBucketArnContextKey), cfg.BuildBucketArn)
	cfg.IndexDocument = lo.CoalesceOrEmpty(contextString(scope, IndexDocumentContextKey), cfg.IndexDocument)
	manage, err := contextBool(scope, ManageBucketPolicyContextKey)
	if err != nil {
		return ArtifactsConfig{}, err
	}
	if manage != nil {
		cfg.ManageBucketPolicy = *manage
	}

	if err := cfg.Validate(); err != nil {
		return ArtifactsConfig{}, err
	}
	return cfg, nil
}

func (c ArtifactsConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid artifacts config: %w", err)
	}
	return nil
}

package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/trufnetwork/artifacts-cdn/infra/config"
	"github.com/trufnetwork/artifacts-cdn/infra/stacks"
)

const defaultDescription = "CI-CDN serves the CI build artifacts bucket through CloudFront"

func main() {
	app := awscdk.NewApp(nil)

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	stacks.CiCdnStack(
		app,
		config.WithStackSuffix(app, "CI-CDN"),
		&stacks.CiCdnStackProps{
			StackProps: awscdk.StackProps{
				Env:         config.CdkEnv(),
				Description: jsii.String(defaultDescription),
			},
			Logger: logger,
		},
	)

	app.Synth(nil)
}

func newLogger() *zap.Logger {
	vars, err := env.ParseAs[config.LoggingEnvironmentVariables]()
	if err != nil {
		panic(err)
	}
	build := zap.NewProduction
	if vars.Debug {
		build = zap.NewDevelopment
	}
	logger, err := build()
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("ci-cdn")
}

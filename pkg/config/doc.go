// Package config loads typed configuration structs from environment
// variables, with optional .env file support for development.
//
// Struct fields are annotated with `env` tags understood by
// github.com/caarlos0/env; godotenv loads the default .env file once per
// process before the first parse.
//
//	var httpCfg httpserver.Config
//	config.MustLoad(&httpCfg)
package config

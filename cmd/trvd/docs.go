package main

// General API documentation for swaggo. Run `swag init -g cmd/trvd/main.go`
// to regenerate docs.
//
// @title           trvd API
// @version         1.0
// @description     HTTP API for the single-slot translate-reason-verify pipeline.
//
// @contact.name   trvd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

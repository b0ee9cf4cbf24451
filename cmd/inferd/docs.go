package main

// General API documentation for swaggo. Handler annotations live in
// internal/httpapi/handlers.go; build with -tags=swagger to serve /swagger/.
//
// @title           inferd API
// @version         1.0
// @description     HTTP API for local LLM inference: model lifecycle, synchronous and streamed generation, cancellation and usage metrics.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @host      127.0.0.1:5005
// @BasePath  /
//
// @schemes http

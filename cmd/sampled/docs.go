package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           sampled API
// @version         1.0
// @description     HTTP API for reproducible, cached LLM sampling.
//
// @contact.name   sampled maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

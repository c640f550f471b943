package main

// General API documentation for swaggo. Run `swag init` to generate docs.
//
// @title           inferd API
// @version         1.0
// @description     OpenAI-style completion API over a local inference engine.
//
// @contact.name   inferd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

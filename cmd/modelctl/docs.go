package main

// General API documentation for swaggo. Regenerate internal/httpapi/apidocs with
// `swag init -g cmd/modelctl/docs.go -o internal/httpapi/apidocs`.
//
// @title           modelctl control API
// @version         1.0
// @description     Local control API of a running modelctl controller: model
// @description     server sessions on the on-demand GPU instance.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @host      127.0.0.1:7077
// @BasePath  /
//
// @schemes http

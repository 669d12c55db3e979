// Package docs provides generated OpenAPI documentation.
//
// Quill API
//
//	@title			Quill API
//	@version		1.0
//	@description	Book production pipeline API for starting, steering and finishing generated books.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/quillhq/quill
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8585
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/quill/serve.go -o ./swagger --parseDependency --parseInternal

// Package config loads the settings of a feo application.
//
// The effective configuration is assembled in layers:
//
//  1. Default: 127.0.0.1:5000, templates/ and static/, 10 MiB bodies
//  2. A YAML or JSON file, chosen by extension
//  3. .feoenv and .env files, loaded with godotenv without overriding
//     variables that are already set
//  4. FEO_HOST, FEO_PORT, FEO_DEBUG, FEO_TEMPLATES, FEO_STATIC,
//     FEO_MAX_BODY_SIZE, FEO_LOG_LEVEL and FEO_LOG_FORMAT
//
// Example config file:
//
//	host: 0.0.0.0
//	port: 8080
//	debug: true
//	templates: views
//	metrics:
//	  enabled: true
//	log:
//	  level: debug
//	  format: json
//
// The result is checked with go-playground/validator. Validation errors
// wrap ErrInvalidConfig and name fields by their YAML keys.
package config

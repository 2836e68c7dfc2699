package cli

import "errors"

// Common CLI errors
var (
	ErrTemplateErrors = errors.New("templates have errors")
	ErrNoTemplates    = errors.New("no templates matched")
)

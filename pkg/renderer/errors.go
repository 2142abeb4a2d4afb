package renderer

import "errors"

var (
	ErrInvalidConfig = errors.New("renderer: invalid render configuration")
	ErrInvalidCamera = errors.New("renderer: invalid camera configuration")
	ErrMissingWorld  = errors.New("renderer: no world to render")
)

package config

import "regexp"

const (
	DefaultTagName  = "default"
	RequiredTagName = "required"
	DotEnvFile      = ".env"
)

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

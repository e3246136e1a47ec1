package config

import "errors"

type configError struct {
	Path string
	Key  string
	Msg  string
}

func (e configError) Error() string {
	s := "config"
	if e.Path != "" {
		s += " " + e.Path
	}
	if e.Key != "" {
		s += ": " + e.Key
	}
	return s + ": " + e.Msg
}

func configErr(path, key, msg string) error { return configError{Path: path, Key: key, Msg: msg} }

// ErrModelExists is returned by AddModel when the id is already registered.
var ErrModelExists = errors.New("model already exists")

// IsConfigError reports whether err is a configuration error and returns the offending key.
func IsConfigError(err error) (key string, ok bool) {
	var ce configError
	if errors.As(err, &ce) {
		return ce.Key, true
	}
	return "", false
}

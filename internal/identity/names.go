package identity

import "regexp"

// nameRx admits lowercase ASCII letters and digits with hyphens strictly in
// the interior. Names in this shape survive unescaped in URLs, form fields,
// and space-delimited scope strings.
var nameRx = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidName reports whether name is usable as a permission, resource, or
// resource action name.
func ValidName(name string) bool {
	return nameRx.MatchString(name)
}

package reviewlink

import _ "embed"

// Version is the release version, kept in the VERSION file.
//
//go:embed VERSION
var Version string

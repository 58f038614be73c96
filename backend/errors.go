package backend

import "errors"

// ErrUnsupported is returned by capability methods a backend does not
// implement (e.g. MakeBlob and MakeRowID on both socipg and socimysql).
// Core code treats it as "feature not available", distinct
// from soci.Category's failure taxonomy since it isn't a runtime failure.
var ErrUnsupported = errors.New("backend: capability not supported")

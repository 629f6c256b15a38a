package geometry

import "errors"

// ErrGeometryUnready means the pitch surface has not been measured yet.
var ErrGeometryUnready = errors.New("pitch geometry not measured")

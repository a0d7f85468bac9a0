package sdkgen

// Literals holds the spec-specific special cases. They are data so a new
// special case is a config change, not a code change.
type Literals struct {
	// NestedSegment, when present anywhere in a path, deepens the folder cut
	// from 3 to 4 segments.
	NestedSegment string
	// Renames maps path segments that are not valid module names.
	Renames map[string]string
	// FileFields are multipart field names always taken as a file path.
	FileFields []string
	// FallbackName is used when a path has no usable segment at all.
	FallbackName string
}

// DefaultLiterals returns the special cases of the Mist API surface.
func DefaultLiterals() Literals {
	return Literals{
		NestedSegment: "installer",
		Renames:       map[string]string{"128routers": "ssr"},
		FileFields:    []string{"csv", "file"},
		FallbackName:  "root",
	}
}

func (l Literals) rename(seg string) string {
	if to, ok := l.Renames[seg]; ok && to != "" {
		return to
	}
	return seg
}

func (l Literals) isFileField(name string) bool {
	for _, f := range l.FileFields {
		if f == name {
			return true
		}
	}
	return false
}

func (l Literals) fallback() string {
	if l.FallbackName == "" {
		return "root"
	}
	return l.FallbackName
}

// Runtime names the symbols of the hand-written client runtime that emitted
// code calls into.
type Runtime struct {
	SessionArg     string
	SessionClass   string
	ResponseModule string
	ResponseClass  string
	// The five HTTP primitives, as methods on the session.
	Get      string
	Post     string
	PostFile string
	Put      string
	Delete   string
}

// DefaultRuntime matches the mistapi session API.
func DefaultRuntime() Runtime {
	return Runtime{
		SessionArg:     "mist_session",
		SessionClass:   "APISession",
		ResponseModule: "__api_response",
		ResponseClass:  "APIResponse",
		Get:            "mist_get",
		Post:           "mist_post",
		PostFile:       "mist_post_file",
		Put:            "mist_put",
		Delete:         "mist_delete",
	}
}

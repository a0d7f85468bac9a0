package sdkgen

import "strings"

const (
	defaultDepth = 3
	nestedDepth  = 4
)

// ModuleTarget is where an operation's functions land in the module tree.
type ModuleTarget struct {
	Folders []string
	File    string
}

// MapPath derives the module target of a URL path. It is total: every path,
// including "/" and paths made only of variables, gets a target with at least
// one folder and a non-empty file name.
func MapPath(path string, lit Literals) ModuleTarget {
	var segs []string
	nested := false
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || isPathVariable(seg) {
			continue
		}
		if lit.NestedSegment != "" && seg == lit.NestedSegment {
			nested = true
		}
		segs = append(segs, lit.rename(seg))
	}
	if len(segs) == 0 {
		name := lit.fallback()
		return ModuleTarget{Folders: []string{name}, File: name}
	}

	cut := defaultDepth
	if nested && len(segs) >= nestedDepth {
		cut = nestedDepth
	}
	n := min(cut, len(segs))
	target := ModuleTarget{Folders: append([]string(nil), segs[:n]...)}
	if len(segs) > cut {
		target.File = segs[cut]
	} else {
		target.File = segs[len(segs)-1]
	}
	return target
}

func isPathVariable(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// pathVariables returns the variable names of a URL template in order.
func pathVariables(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if isPathVariable(seg) {
			out = append(out, seg[1:len(seg)-1])
		}
	}
	return out
}

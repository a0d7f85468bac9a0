package sdkgen

import (
	"path"
	"strings"
)

// File is one generated file, relative to the output directory.
type File struct {
	RelPath string
	Content string
}

// Folder is a package directory. Children lists subfolder and module names in
// first-seen order, each once.
type Folder struct {
	Segments []string
	children []string
	seen     map[string]bool
	modules  []*Module
	byName   map[string]*Module
}

func (f *Folder) Children() []string { return f.children }

func (f *Folder) Modules() []*Module { return f.modules }

// Module returns the named module file, or nil.
func (f *Folder) Module(name string) *Module { return f.byName[name] }

func (f *Folder) addChild(name string) {
	if f.seen[name] {
		return
	}
	f.seen[name] = true
	f.children = append(f.children, name)
}

// Module accumulates the functions of one generated file.
type Module struct {
	Name      string
	Functions []EmittedFunction
	// Deprecated is set once any function in the module is a shim.
	Deprecated bool
}

// FunctionNames lists the functions in insertion order.
func (m *Module) FunctionNames() []string {
	out := make([]string, len(m.Functions))
	for i, fn := range m.Functions {
		out[i] = fn.Name
	}
	return out
}

// Tree is the in-memory module tree. Folders are kept in creation order, which
// always puts a parent before its children.
type Tree struct {
	root    *Folder
	folders []*Folder
	byKey   map[string]*Folder
}

func NewTree() *Tree {
	return &Tree{
		root:  newFolder(nil),
		byKey: map[string]*Folder{},
	}
}

func newFolder(segs []string) *Folder {
	return &Folder{
		Segments: segs,
		seen:     map[string]bool{},
		byName:   map[string]*Module{},
	}
}

// Insert appends fn to the module named by target, creating folders and
// registering every name with its parent on first sight.
func (t *Tree) Insert(target ModuleTarget, fn EmittedFunction) {
	folder := t.folder(target.Folders)
	mod := folder.byName[target.File]
	if mod == nil {
		mod = &Module{Name: target.File}
		folder.byName[target.File] = mod
		folder.modules = append(folder.modules, mod)
		folder.addChild(target.File)
	}
	mod.Functions = append(mod.Functions, fn)
	mod.Deprecated = mod.Deprecated || fn.Deprecated
}

func (t *Tree) folder(segs []string) *Folder {
	parent := t.root
	for i := range segs {
		key := strings.Join(segs[:i+1], "/")
		f, ok := t.byKey[key]
		if !ok {
			f = newFolder(append([]string(nil), segs[:i+1]...))
			t.byKey[key] = f
			t.folders = append(t.folders, f)
		}
		parent.addChild(segs[i])
		parent = f
	}
	return parent
}

// Folders returns every folder in creation order.
func (t *Tree) Folders() []*Folder { return t.folders }

// Folder returns the folder at segs, or nil.
func (t *Tree) Folder(segs ...string) *Folder { return t.byKey[strings.Join(segs, "/")] }

// TopLevel lists the names directly under the package root.
func (t *Tree) TopLevel() []string { return t.root.children }

// Materialize renders the tree into files: for each folder, its package index
// followed by its modules. The package root index is hand-written and never
// generated.
func (t *Tree) Materialize(e *Emitter) ([]File, error) {
	var files []File
	for _, f := range t.folders {
		dir := path.Join(append([]string{e.cfg.Package}, f.Segments...)...)
		index, err := e.IndexSource(f.Segments, f.children)
		if err != nil {
			return nil, err
		}
		files = append(files, File{RelPath: path.Join(dir, "__init__.py"), Content: index})
		for _, m := range f.modules {
			src, err := e.ModuleSource(m.Functions)
			if err != nil {
				return nil, err
			}
			files = append(files, File{RelPath: path.Join(dir, m.Name+".py"), Content: src})
		}
	}
	return files, nil
}

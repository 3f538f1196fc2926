package syntax

// File is the result of reading a single source file.
type File struct {
	Name     string
	Language string
	Funcs    []*Func

	// Package is the name of the Go package, empty for other languages.
	Package string

	// Warnings describe parts of the file that could not be understood.
	// The affected statements are still part of Funcs, with placeholder
	// labels.
	Warnings []string
}

// Lookup returns the function with the given name, or nil.
func (f *File) Lookup(name string) *Func {
	for _, fn := range f.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

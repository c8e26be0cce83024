// Package template defines the engine-agnostic rendering seam and the
// per-session Registry of helper functions and named templates. Concrete
// engines live in the gotemplate (pongo2) and gonja subpackages.
package template

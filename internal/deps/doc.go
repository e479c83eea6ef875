// Package deps reports whether the external binaries clipforge shells out to
// are installed.
package deps

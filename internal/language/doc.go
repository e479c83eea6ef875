// Package language normalizes the language identifiers clipforge accepts in
// configuration, settings, and CLI flags into canonical BCP 47 tags, names them
// for display, and detects the language of source text when the user asks for
// automatic detection.
package language

// Package translation wraps the translation provider and the batch stage that
// uses it.
//
// DeepL implements Translator. Batch translates a whole text into every target
// language under one credential sized for the full job, then records the
// provider usage on that credential. ResolveSource handles the "auto" source
// setting by detecting the language of the text.
package translation

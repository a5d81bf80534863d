// Package templating renders the commit message and the
// pull request title and body of a change. It uses
// valyala/fasttemplate with configurable delimiters
// (default "{{" and "}}").
//
// Templates see the change variables set by the caller
// plus user variables, each stored as both "NAME" and
// "variables.NAME". A template value starting with '@'
// names a file holding the template.
package templating

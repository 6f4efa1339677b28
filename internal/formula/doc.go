// Package formula implements the restricted expression language used by stat
// formulas: integer literals, sigil references ($name, #name, @attr and their
// braced forms), arithmetic, comparison and logic operators, and the builtins
// min, max, sum, abs and if.
//
// Formulas are parsed into a small tree, references are checked by a Resolver
// and evaluation walks the tree against an Env. Nothing else is executable.
package formula

// Package krb5 is a safe wrapper around the MIT libkrb5 C library.
//
// The primary entry point is [Context]. Every other wrapper in this package
// (principals, keyblocks, keytabs, salts) is created from exactly one Context
// and holds a back-reference to it. libkrb5 handles become invalid once the
// context that produced them is freed, so the wrappers enforce the nesting at
// runtime: closing a Context first releases every still-live derived resource,
// and any later use of a freed wrapper fails with [ErrFreed] instead of
// touching freed native memory.
//
// A Context is NOT safe for concurrent use. libkrb5 mutates context-internal
// state on most calls, so callers must either serialize access to a Context or
// create one Context per concurrent task.
//
// The kadm5 administration client lives in the subordinate package
// pkg/krb5/kadm5 and shares the same lifetime model through
// [Context.Adopt].
package krb5

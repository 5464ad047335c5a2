// Package kadm5 is a client for the Kerberos administration protocol,
// wrapping the MIT libkadm5clnt C library.
//
// The entry point is [Connect], which performs the remote authentication
// handshake and returns a [ServerHandle]. A ServerHandle is derived from a
// [krb5.Context] and shares its lifetime model: the handle registers itself
// with the context so that closing the context in the wrong order cannot
// leave a dangling native session.
//
// Unlike every other teardown in the krb5 wrappers, destroying a ServerHandle
// is fatal on failure: a half-destroyed admin session leaves native state
// unknown and cannot be safely retried or ignored.
package kadm5

// Package userdir provides goSession.UserDirectory implementations.
//
// [Memory] keeps accounts in process and suits tests and local development.
// [Postgres] stores them in a users table created by [Migrate]. Both hash
// passwords with the password package and both implement
// goSession.UserRegistrar, so Engine.Register works with either.
//
// Emails are stored in their normalized (trimmed, lower-case) form. Verify
// does the same amount of hashing work for an unknown email as for a wrong
// password.
package userdir

// Package password hashes and verifies user passwords.
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verify also accepts bcrypt hashes carried over from older user tables.
// NeedsUpgrade returns true for those, and for argon2id hashes produced with
// weaker parameters, so the directory can rehash on the next successful login.
//
// Length policy (minimum characters) is enforced by registration, not here.
package password

// Package password hashes and verifies login passwords with argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// A [Hasher] also owns a throwaway hash built at construction time. Login calls
// [Hasher.VerifyUnknown] when the identifier matches no user, so a miss spends the
// same argon2 work as a wrong password.
//
// The package never logs plaintext or hash parameters.
package password

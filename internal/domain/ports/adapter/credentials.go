package adapter

// CredentialIssuer issues temporary passwords for newly created users and
// hashes them for storage.
type CredentialIssuer interface {
	TemporaryPassword() (string, error)
	Hash(password string) (string, error)
}

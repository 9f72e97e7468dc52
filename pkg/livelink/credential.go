package livelink

// Credential holds a backend username and password in wipeable buffers.
// A Credential is consumed by exactly one Authenticate call, which wipes it
// on every exit path.
type Credential struct {
	username []byte
	password []byte
}

// NewCredential copies username and password into a fresh Credential.
func NewCredential(username string, password []byte) *Credential {
	cred := &Credential{
		username: []byte(username),
		password: make([]byte, len(password)),
	}
	copy(cred.password, password)
	return cred
}

// Username returns the login name. It is not secret and may be logged.
func (c *Credential) Username() string {
	if c == nil {
		return ""
	}
	return string(c.username)
}

// Wiped reports whether the credential has already been scrubbed.
func (c *Credential) Wiped() bool {
	return c == nil || (c.username == nil && c.password == nil)
}

// Wipe zeroes both buffers and releases them.
func (c *Credential) Wipe() {
	if c == nil {
		return
	}
	clear(c.username)
	clear(c.password)
	c.username = nil
	c.password = nil
}

// String never reveals the password.
func (c *Credential) String() string {
	return "livelink.Credential{" + c.Username() + ", ***}"
}

package testdev

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nvtkit/onvif-go/pkg/wire"
)

const digestRealm = "ONVIF Device"

// Authentication verdicts.
const (
	authOK = iota
	authDigest
	authRejected
)

// wsseToken is the received UsernameToken, matched by local names.
type wsseToken struct {
	Username string `xml:"UsernameToken>Username"`
	Password string `xml:"UsernameToken>Password"`
	Nonce    string `xml:"UsernameToken>Nonce"`
	Created  string `xml:"UsernameToken>Created"`
}

// verify recomputes the password digest over the transmitted nonce and
// timestamp.
func (t *wsseToken) verify(username, password string) bool {
	if t == nil || t.Username != username {
		return false
	}
	nonce, err := base64.StdEncoding.DecodeString(t.Nonce)
	if err != nil {
		return false
	}
	return t.Password == wire.PasswordDigest(nonce, t.Created, password)
}

// authenticate judges one call against the configured credential.
func (d *Device) authenticate(r *http.Request, env inbound) int {
	d.mu.Lock()
	username, password := d.username, d.password
	digestOnly, nonce := d.digestOnly, d.nonce
	d.mu.Unlock()

	if username == "" {
		return authOK
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Digest ") {
		if verifyDigest(h, username, password, r.Method, nonce) {
			return authDigest
		}
		return authRejected
	}
	if !digestOnly && env.security.verify(username, password) {
		return authOK
	}
	return authRejected
}

// challenge answers 401 with an RFC 2617 digest challenge.
func (d *Device) challenge(w http.ResponseWriter) {
	d.mu.Lock()
	nonce, opaque := d.nonce, d.opaque
	d.mu.Unlock()

	w.Header().Set("WWW-Authenticate", fmt.Sprintf(
		`Digest realm=%q, qop="auth", nonce=%q, opaque=%q, algorithm=MD5`,
		digestRealm, nonce, opaque))
	w.WriteHeader(http.StatusUnauthorized)
}

// verifyDigest checks the qop=auth response hash against the credential
// and the challenge nonce.
func verifyDigest(header, username, password, method, nonce string) bool {
	params := parseDigestParams(header)
	if params["username"] != username || params["nonce"] != nonce {
		return false
	}

	ha1 := md5hex(username + ":" + params["realm"] + ":" + password)
	ha2 := md5hex(method + ":" + params["uri"])
	want := md5hex(strings.Join([]string{
		ha1, params["nonce"], params["nc"], params["cnonce"], params["qop"], ha2,
	}, ":"))
	return params["response"] == want
}

func parseDigestParams(header string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(strings.TrimPrefix(header, "Digest "), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		out[strings.ToLower(k)] = strings.Trim(v, `"`)
	}
	return out
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

package wire

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"time"
)

// WS-Security namespaces and type identifiers.
const (
	NamespaceSecurity = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	NamespaceUtility  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"

	passwordDigestType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordDigest"
	nonceEncodingType  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"

	// createdLayout renders the UsernameToken timestamp; devices reject
	// timestamps without the trailing Z.
	createdLayout = "2006-01-02T15:04:05.000Z"
)

// Security is the WS-Security header with one UsernameToken.
type Security struct {
	XMLName        xml.Name      `xml:"Security"`
	NS             string        `xml:"xmlns,attr"`
	MustUnderstand string        `xml:"s:mustUnderstand,attr"`
	Token          UsernameToken `xml:"UsernameToken"`
}

// UsernameToken carries the digest-authenticated credential.
type UsernameToken struct {
	Username string        `xml:"Username"`
	Password tokenPassword `xml:"Password"`
	Nonce    tokenNonce    `xml:"Nonce"`
	Created  tokenCreated  `xml:"Created"`
}

type tokenPassword struct {
	Type  string `xml:"Type,attr"`
	Value string `xml:",chardata"`
}

type tokenNonce struct {
	EncodingType string `xml:"EncodingType,attr"`
	Value        string `xml:",chardata"`
}

type tokenCreated struct {
	NS    string `xml:"xmlns,attr"`
	Value string `xml:",chardata"`
}

// NewSecurity builds a UsernameToken header for one request. The token is
// single-use: a fresh nonce and timestamp are generated per call. offset is
// added to local time so the Created timestamp lands inside the device's
// clock tolerance window.
func NewSecurity(username, password string, offset time.Duration) *Security {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		panic("wire: reading random nonce: " + err.Error())
	}
	created := time.Now().UTC().Add(offset).Format(createdLayout)

	return &Security{
		NS:             NamespaceSecurity,
		MustUnderstand: "1",
		Token: UsernameToken{
			Username: username,
			Password: tokenPassword{
				Type:  passwordDigestType,
				Value: PasswordDigest(nonce, created, password),
			},
			Nonce: tokenNonce{
				EncodingType: nonceEncodingType,
				Value:        base64.StdEncoding.EncodeToString(nonce),
			},
			Created: tokenCreated{NS: NamespaceUtility, Value: created},
		},
	}
}

// PasswordDigest computes the UsernameToken digest,
// Base64(SHA1(nonce || created || password)), over the raw nonce bytes and
// the Created timestamp exactly as transmitted.
func PasswordDigest(nonce []byte, created, password string) string {
	h := sha1.New()
	h.Write(nonce)
	h.Write([]byte(created))
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

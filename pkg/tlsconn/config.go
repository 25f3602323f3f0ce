package tlsconn

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/opsnet/asyncio/internal/rawerrors"
)

// KeyStoreConfig names the certificate/private key material to present,
// modeled on a Java-style key store (path, password, store type, and
// key-manager algorithm) per spec section 4.14's Config description.
// Go has no stdlib keystore format, so Path is a PEM file holding both the
// leaf certificate (and any chain) and the private key; Type and
// KeyManagerAlgorithm are accepted for shape-compatibility with the
// original config surface but only "PEM" is implemented.
type KeyStoreConfig struct {
	Path                string
	Password            string
	Type                string
	KeyManagerAlgorithm string
}

// TrustStoreConfig names the CA material used to verify peer certificates.
// Path is a PEM file of one or more CA certificates.
type TrustStoreConfig struct {
	Path                  string
	Password              string
	Type                  string
	TrustManagerAlgorithm string
}

// Config is the declarative description createContext turns into a
// *tls.Config: a key store, an optional trust store (or TrustAll), and a
// context protocol name selecting a version profile.
type Config struct {
	KeyStore   KeyStoreConfig
	TrustStore *TrustStoreConfig
	TrustAll   bool
	Protocol   string // ProtocolModern, ProtocolSecure (default), ProtocolCompatible

	// RequireClientCert enables mutual TLS: the peer must present a
	// certificate verified against TrustStore. Only meaningful when
	// TrustStore is set.
	RequireClientCert bool
}

// CreateContext is purely declarative: it loads the configured key and
// trust material and returns a *tls.Config, performing no I/O beyond
// reading those files.
func CreateContext(cfg Config) (*tls.Config, error) {
	if cfg.KeyStore.Type != "" && cfg.KeyStore.Type != "PEM" {
		return nil, rawerrors.NewValidationError("tls-config", "unsupported key store type: "+cfg.KeyStore.Type)
	}
	if cfg.KeyStore.Password != "" {
		return nil, rawerrors.NewValidationError("tls-config", "encrypted key stores are not supported")
	}
	if cfg.KeyStore.Path == "" {
		return nil, rawerrors.NewValidationError("tls-config", "key store path is required")
	}

	pem, err := os.ReadFile(cfg.KeyStore.Path)
	if err != nil {
		return nil, rawerrors.NewIOError("tls-config", "reading key store", err)
	}
	cert, err := tls.X509KeyPair(pem, pem)
	if err != nil {
		return nil, rawerrors.NewTLSError("tls-config", "parsing key store", err)
	}

	profile, ok := profiles[cfg.Protocol]
	if !ok {
		profile = profiles[ProtocolSecure]
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   profile.Min,
		MaxVersion:   profile.Max,
		CipherSuites: cipherSuitesFor(profile.Min),
		Renegotiation: tls.RenegotiateNever,
	}

	switch {
	case cfg.TrustAll:
		tlsCfg.InsecureSkipVerify = true
	case cfg.TrustStore != nil:
		pool, err := loadCertPool(*cfg.TrustStore)
		if err != nil {
			return nil, err
		}
		tlsCfg.ClientCAs = pool
		if cfg.RequireClientCert {
			tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
		} else {
			tlsCfg.ClientAuth = tls.VerifyClientCertIfGiven
		}
	}

	return tlsCfg, nil
}

func loadCertPool(cfg TrustStoreConfig) (*x509.CertPool, error) {
	if cfg.Type != "" && cfg.Type != "PEM" {
		return nil, rawerrors.NewValidationError("tls-config", "unsupported trust store type: "+cfg.Type)
	}
	pem, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, rawerrors.NewIOError("tls-config", "reading trust store", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, rawerrors.NewTLSError("tls-config", "no certificates found in trust store", nil)
	}
	return pool, nil
}

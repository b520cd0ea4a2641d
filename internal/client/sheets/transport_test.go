package sheets

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateCACert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "bodylog test CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestNewHTTPClient_Plain(t *testing.T) {
	c, err := NewHTTPClient(TLSOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Nil(t, c.Transport)
}

func TestNewHTTPClient_WithCAAndClientCert(t *testing.T) {
	dir := t.TempDir()
	certPEM, keyPEM := generateCACert(t)
	caFile := writeFile(t, dir, "ca.pem", certPEM)
	certFile := writeFile(t, dir, "client.pem", certPEM)
	keyFile := writeFile(t, dir, "client.key", keyPEM)

	c, err := NewHTTPClient(TLSOptions{CAFile: caFile, CertFile: certFile, KeyFile: keyFile})
	require.NoError(t, err)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, tr.TLSClientConfig)
	assert.Len(t, tr.TLSClientConfig.Certificates, 1)
	assert.NotNil(t, tr.TLSClientConfig.RootCAs)
}

func TestNewHTTPClient_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewHTTPClient(TLSOptions{CAFile: filepath.Join(dir, "missing.pem")})
	assert.ErrorContains(t, err, "failed to read CA cert")

	bad := writeFile(t, dir, "bad.pem", []byte("not a cert"))
	_, err = NewHTTPClient(TLSOptions{CAFile: bad})
	assert.ErrorContains(t, err, "failed to parse CA cert")

	_, err = NewHTTPClient(TLSOptions{CertFile: bad, KeyFile: bad})
	assert.ErrorContains(t, err, "failed to load client cert/key")
}

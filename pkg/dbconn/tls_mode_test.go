package dbconn

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestCert creates a self-signed CA certificate and returns it as
// PEM and DER.
func generateTestCert(t *testing.T) ([]byte, []byte) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"Test Org"}},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), certDER
}

func writeCert(t *testing.T, certPEM []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, certPEM, 0o600))
	return path
}

func TestNewCustomTLSConfigModes(t *testing.T) {
	certPEM, _ := generateTestCert(t)
	pool, err := certPool(writeCert(t, certPEM))
	require.NoError(t, err)

	tests := []struct {
		sslMode          string
		expectNil        bool
		expectSkipVerify bool
		expectVerifyFunc bool
		expectRootCAs    bool
	}{
		{sslMode: "VERIFY_IDENTITY", expectRootCAs: true},
		{sslMode: "VERIFY_CA", expectSkipVerify: true, expectVerifyFunc: true, expectRootCAs: true},
		{sslMode: "REQUIRED", expectSkipVerify: true, expectRootCAs: true},
		{sslMode: "PREFERRED", expectSkipVerify: true},
		{sslMode: "DISABLED", expectNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.sslMode, func(t *testing.T) {
			config := NewCustomTLSConfig(pool, tt.sslMode)
			if tt.expectNil {
				assert.Nil(t, config)
				return
			}
			require.NotNil(t, config)
			assert.Equal(t, tt.expectSkipVerify, config.InsecureSkipVerify)
			assert.Equal(t, tt.expectRootCAs, config.RootCAs != nil)
			assert.Equal(t, tt.expectVerifyFunc, config.VerifyPeerCertificate != nil)
		})
	}
}

func TestVerifyChain(t *testing.T) {
	certPEM, certDER := generateTestCert(t)
	pool, err := certPool(writeCert(t, certPEM))
	require.NoError(t, err)

	assert.NoError(t, verifyChain(pool, [][]byte{certDER}))
	assert.ErrorContains(t, verifyChain(pool, nil), "no certificates provided")
	assert.ErrorContains(t, verifyChain(pool, [][]byte{[]byte("junk")}), "failed to parse certificate")

	otherPEM, _ := generateTestCert(t)
	otherPool, err := certPool(writeCert(t, otherPEM))
	require.NoError(t, err)
	assert.ErrorContains(t, verifyChain(otherPool, [][]byte{certDER}), "certificate verification failed")
}

func TestCertPool(t *testing.T) {
	_, err := certPool(filepath.Join(t.TempDir(), "missing.pem"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = certPool(writeCert(t, []byte("not a certificate")))
	assert.ErrorContains(t, err, "no certificates found")
}

func TestNewDSNWithTLSModes(t *testing.T) {
	certPEM, _ := generateTestCert(t)
	certPath := writeCert(t, certPEM)
	dsn := "root:password@tcp(example.com:3306)/test"

	tests := []struct {
		mode        string
		certPath    string
		expectedTLS string
		expectError bool
	}{
		{mode: "DISABLED", expectedTLS: ""},
		{mode: "PREFERRED", expectedTLS: "tls=preferred"},
		{mode: "PREFERRED", certPath: certPath, expectedTLS: "tls=custom"},
		{mode: "REQUIRED", expectedTLS: "tls=skip-verify"},
		{mode: "REQUIRED", certPath: certPath, expectedTLS: "tls=required"},
		{mode: "VERIFY_CA", certPath: certPath, expectedTLS: "tls=verify_ca"},
		{mode: "VERIFY_IDENTITY", expectedTLS: "tls=true"},
		{mode: "VERIFY_IDENTITY", certPath: certPath, expectedTLS: "tls=verify_identity"},
		{mode: "SOMETIMES", expectError: true},
		{mode: "REQUIRED", certPath: filepath.Join(t.TempDir(), "missing.pem"), expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode+"/"+filepath.Base(tt.certPath), func(t *testing.T) {
			config := NewDBConfig()
			config.TLSMode = tt.mode
			config.TLSCertificatePath = tt.certPath
			resp, err := newDSN(dsn, config)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.expectedTLS == "" {
				assert.NotContains(t, resp, "tls=")
			} else {
				assert.Contains(t, resp, "?"+tt.expectedTLS+"&")
			}
		})
	}
}

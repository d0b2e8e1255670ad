package dbconn

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/block/litemove/pkg/utils"
	"github.com/go-sql-driver/mysql"
)

const (
	customTLSConfigName   = "custom"
	requiredTLSConfigName = "required"
	verifyCATLSConfigName = "verify_ca"
	verifyIDTLSConfigName = "verify_identity"
	maxConnLifetime       = time.Minute * 3
)

var ErrUnknownTLSMode = errors.New("unknown TLS mode")

// NewCustomTLSConfig returns the tls.Config for an SSL mode, trusting the
// CAs in pool.
func NewCustomTLSConfig(pool *x509.CertPool, sslMode string) *tls.Config {
	switch sslMode {
	case "DISABLED":
		return nil
	case "REQUIRED":
		// Encryption only.
		return &tls.Config{
			RootCAs:            pool,
			InsecureSkipVerify: true,
		}
	case "VERIFY_CA":
		// The chain must verify against pool but the hostname is not checked.
		return &tls.Config{
			RootCAs:            pool,
			InsecureSkipVerify: true,
			VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
				return verifyChain(pool, rawCerts)
			},
		}
	case "VERIFY_IDENTITY":
		return &tls.Config{
			RootCAs: pool,
		}
	default: // PREFERRED
		return &tls.Config{
			InsecureSkipVerify: true,
		}
	}
}

func verifyChain(pool *x509.CertPool, rawCerts [][]byte) error {
	if len(rawCerts) == 0 {
		return errors.New("no certificates provided")
	}
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return fmt.Errorf("failed to parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}
	if _, err := certs[0].Verify(x509.VerifyOptions{
		Roots:         pool,
		Intermediates: intermediates,
	}); err != nil {
		return fmt.Errorf("certificate verification failed: %w", err)
	}
	return nil
}

// certPool returns a pool with the certificates in path, or the system pool
// when path is empty.
func certPool(path string) (*x509.CertPool, error) {
	if path == "" {
		return x509.SystemCertPool()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

func getTLSConfigName(mode string) string {
	switch mode {
	case "REQUIRED":
		return requiredTLSConfigName
	case "VERIFY_CA":
		return verifyCATLSConfigName
	case "VERIFY_IDENTITY":
		return verifyIDTLSConfigName
	default:
		return customTLSConfigName
	}
}

// tlsParam returns the value of the driver's tls parameter for config.
// The driver's builtin values are used unless a certificate is given or
// VERIFY_CA is requested.
func tlsParam(config *DBConfig) (string, error) {
	switch config.TLSMode {
	case "DISABLED":
		return "", nil
	case "PREFERRED", "":
		if config.TLSCertificatePath == "" {
			return "preferred", nil
		}
	case "REQUIRED":
		if config.TLSCertificatePath == "" {
			return "skip-verify", nil
		}
	case "VERIFY_IDENTITY":
		if config.TLSCertificatePath == "" {
			return "true", nil
		}
	case "VERIFY_CA":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTLSMode, config.TLSMode)
	}
	pool, err := certPool(config.TLSCertificatePath)
	if err != nil {
		return "", err
	}
	name := getTLSConfigName(config.TLSMode)
	if err := mysql.RegisterTLSConfig(name, NewCustomTLSConfig(pool, config.TLSMode)); err != nil {
		return "", err
	}
	return name, nil
}

// newDSN returns a new DSN to be used to connect to MySQL.
// It accepts a DSN as input and appends TLS and session settings.
func newDSN(dsn string, config *DBConfig) (string, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return "", err
	}
	var ops []string
	tlsValue, err := tlsParam(config)
	if err != nil {
		return "", err
	}
	if tlsValue != "" {
		ops = append(ops, fmt.Sprintf("%s=%s", "tls", url.QueryEscape(tlsValue)))
	}
	// An empty sql_mode lets the copy write the same values the source
	// holds, as mysqldump does.
	ops = append(ops, fmt.Sprintf("%s=%s", "sql_mode", url.QueryEscape(`""`)))
	ops = append(ops, fmt.Sprintf("%s=%s", "time_zone", url.QueryEscape(`"+00:00"`)))
	ops = append(ops, fmt.Sprintf("%s=%s", "innodb_lock_wait_timeout", url.QueryEscape(strconv.Itoa(config.InnodbLockWaitTimeout))))
	ops = append(ops, fmt.Sprintf("%s=%s", "lock_wait_timeout", url.QueryEscape(strconv.Itoa(config.LockWaitTimeout))))
	ops = append(ops, fmt.Sprintf("%s=%s", "transaction_isolation", url.QueryEscape(`"read-committed"`)))
	ops = append(ops, fmt.Sprintf("%s=%s", "charset", "utf8mb4"))
	ops = append(ops, fmt.Sprintf("%s=%s", "collation", "utf8mb4_bin"))
	// Recycle the connection if we land on a primary that became a read only replica.
	ops = append(ops, fmt.Sprintf("%s=%s", "rejectReadOnly", "true"))
	ops = append(ops, fmt.Sprintf("%s=%t", "interpolateParams", config.InterpolateParams))
	ops = append(ops, fmt.Sprintf("%s=%s", "allowNativePasswords", "true"))

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s%s", dsn, separator, strings.Join(ops, "&")), nil
}

// New is similar to sql.Open except we take the inputDSN and
// append additional options to it to standardize the connection.
// It will also ping the connection to ensure it is valid.
func New(inputDSN string, config *DBConfig) (*sql.DB, error) {
	dsn, err := newDSN(inputDSN, config)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		utils.ErrInErr(db.Close())
		return nil, err
	}
	db.SetMaxOpenConns(config.MaxOpenConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	return db, nil
}

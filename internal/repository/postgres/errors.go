package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/domain/scan"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes that decide how a failure is reported.
const (
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	codeCrashShutdown        = "57P02"
	codeCannotConnectNow     = "57P03"
)

// classify maps a driver error onto a *scan.StorageError. Domain sentinels and
// already classified errors pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if scan.KindOf(err) != scan.KindUnknown {
		return err
	}
	return &scan.StorageError{Kind: storageKind(err), Op: op, Err: err}
}

func storageKind(err error) scan.StorageErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return scan.StorageTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeLockNotAvailable, pgErr.Code == codeQueryCanceled:
			return scan.StorageTimeout
		case pgErr.Code == codeSerializationFailure, pgErr.Code == codeDeadlockDetected,
			strings.HasPrefix(pgErr.Code, "23"):
			return scan.StorageConflict
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == codeAdminShutdown, pgErr.Code == codeCrashShutdown, pgErr.Code == codeCannotConnectNow:
			return scan.StorageConnection
		}
		return scan.StorageUnknown
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return scan.StorageConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return scan.StorageTimeout
		}
		return scan.StorageConnection
	}

	return scan.StorageUnknown
}

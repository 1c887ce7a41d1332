package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrConnect marks failures to reach the database.
	ErrConnect = errors.New("storage connect failure")
	// ErrQuery marks failures of a statement on a reachable database.
	ErrQuery = errors.New("storage query failure")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

// classify wraps err with ErrConnect or ErrQuery.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnect) || errors.Is(err, ErrQuery) || errors.Is(err, ErrNotFound) {
		return err
	}
	if isConnectError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrConnect, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrQuery, err)
}

func isConnectError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

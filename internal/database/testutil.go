package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory SQLite database for testing.
// The database is automatically closed when the test completes.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:", nil)
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// CreateTestCustomer creates a customer with a unique id for the tenant.
var testCustomerCounter int64 = 0

func CreateTestCustomer(t *testing.T, db *DB, tenantID string) *Customer {
	t.Helper()
	testCustomerCounter++

	c := Customer{
		ID:       fmt.Sprintf("cust-%d", testCustomerCounter),
		TenantID: tenantID,
		Name:     fmt.Sprintf("Test Customer %d", testCustomerCounter),
		Email:    fmt.Sprintf("customer%d@example.com", testCustomerCounter),
	}
	require.NoError(t, db.CreateCustomer(context.Background(), c), "failed to create test customer")
	return &c
}

// IntPtr returns a pointer to the given int
func IntPtr(i int) *int {
	return &i
}

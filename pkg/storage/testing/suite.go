package testing

import (
	"context"
	"testing"

	"github.com/marmos91/vfinder/pkg/storage"
)

// BackendTestSuite is a comprehensive test suite for storage.Backend
// implementations. It tests the interface contract, not implementation
// details, making it reusable across backends (memory, local disk, badger, S3).
//
// Usage:
//
//	func TestMyBackend(t *testing.T) {
//	    suite := &storagetest.BackendTestSuite{
//	        NewBackend: func(t *testing.T) storage.Backend {
//	            return mybackend.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type BackendTestSuite struct {
	// NewBackend creates a fresh, empty backend for each test. This ensures
	// test isolation. The suite closes the backend when the test ends.
	NewBackend func(t *testing.T) storage.Backend

	// SkipSeekable disables the random access checks for backends whose
	// streams are not seekable.
	SkipSeekable bool
}

// Run executes all tests in the suite.
func (suite *BackendTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("ListOperations", suite.RunListTests)
	t.Run("StructureOperations", suite.RunStructureTests)
}

func (suite *BackendTestSuite) newBackend(t *testing.T) storage.Backend {
	b := suite.NewBackend(t)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// Package testing provides a conformance suite for volume.FileSystem
// implementations.
package testing

import (
	"context"
	"testing"

	"github.com/marmos91/fstool/pkg/volume"
)

// VolumeTestSuite tests the volume contract, not implementation details,
// so the same suite runs against every backend (memory, fs, badger, s3).
//
// Usage:
//
//	func TestMyVolume(t *testing.T) {
//	    suite := &voltesting.VolumeTestSuite{
//	        NewFileSystem: func(t *testing.T) volume.FileSystem {
//	            return myvolume.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type VolumeTestSuite struct {
	// NewFileSystem creates a fresh, empty file system for each test.
	NewFileSystem func(t *testing.T) volume.FileSystem
}

// Run executes all tests in the suite.
func (suite *VolumeTestSuite) Run(t *testing.T) {
	t.Run("OpenOperations", suite.RunOpenTests)
	t.Run("ReadWriteOperations", suite.RunReadWriteTests)
	t.Run("DeleteOperations", suite.RunDeleteTests)
	t.Run("HandleLifecycle", suite.RunLifecycleTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// openRoot opens the root of a fresh file system and closes it on cleanup.
func (suite *VolumeTestSuite) openRoot(t *testing.T) volume.Directory {
	t.Helper()

	fsys := suite.NewFileSystem(t)
	root, err := fsys.OpenVolume(testContext())
	if err != nil {
		t.Fatalf("OpenVolume failed: %v", err)
	}
	t.Cleanup(func() { _ = root.Close() })

	return root
}

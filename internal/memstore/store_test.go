package memstore

import (
	"testing"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/internal/store/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

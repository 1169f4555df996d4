package iocache

import (
	"sync"

	"github.com/huangsam/mergecheck/internal/contract"
)

// StoreManager owns the result cache and the history store for the process.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	results      contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &StoreManager{} // Compile-time check

// GetResultStore returns the persistent result cache, or nil when disabled.
func (mgr *StoreManager) GetResultStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.results
}

// GetHistoryStore returns the evaluation history store, or nil when disabled.
func (mgr *StoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}

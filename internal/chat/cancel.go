// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager holds the cancel function of one in-flight exchange.
// Cancel may arrive from the UI goroutine before the exchange has installed
// its function; in that case the function is invoked as soon as it is set.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	cancelled  bool
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// setCancelFunc stores fn, calling it immediately if cancel already happened.
func (cm *cancelManager) setCancelFunc(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelled {
		fn()
		return
	}
	cm.cancelFunc = fn
}

// cancel invokes the stored function once. Safe to call repeatedly.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelled = true
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// clear releases the context without marking the exchange as cancelled.
func (cm *cancelManager) clear() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc() // always cancel to prevent context leaks
		cm.cancelFunc = nil
	}
}

// wasCancelled reports whether cancel was called.
func (cm *cancelManager) wasCancelled() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.cancelled
}

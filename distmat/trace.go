package distmat

import (
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// span is a scoped trace guard: it logs entry immediately and exit when the
// returned closure runs. At default verbosity it reduces to a single atomic
// check and a no-op closure, so redistribution hot paths pay nothing for it.
//
// Run it as
//
//	defer span("CopyFrom [MC,MR] <- [MR,MC]")()
func span(name string) func() {
	if !klog.V(3).Enabled() {
		return func() {}
	}
	id := uuid.NewString()[:8]
	start := time.Now()
	klog.Infof("gridmat: span %s enter %s", id, name)
	return func() {
		klog.Infof("gridmat: span %s exit  %s (%s)", id, name, time.Since(start))
	}
}

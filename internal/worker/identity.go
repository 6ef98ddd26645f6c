package worker

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// NewWorkerID returns a stable worker-{pid}-{8 random hex} identity,
// adapted from a pod-id-plus-index worker naming scheme to this core's
// single-process ids.
func NewWorkerID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("worker-%d-00000000", os.Getpid())
	}
	return fmt.Sprintf("worker-%d-%s", os.Getpid(), hex.EncodeToString(buf))
}

package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// ResponseKey addresses a cached classification reply. The key changes when
// the model, the policy prompt or the record payload changes.
func ResponseKey(model, policyHash, inputHash string) string {
	return fmt.Sprintf("classify:%s:%s:%s", model, policyHash, inputHash)
}

func RunStatusKey(runID uuid.UUID) string {
	return fmt.Sprintf("run:%s", runID)
}

// RunProgressKey counts completed records of a run.
func RunProgressKey(runID uuid.UUID) string {
	return fmt.Sprintf("run:%s:done", runID)
}

// RateLimitKey counts ops API requests from one client per window.
func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
